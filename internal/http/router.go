package http

import (
	"net/http"

	"dayplan/internal/alarm"
	"dayplan/internal/auth"
	"dayplan/internal/category"
	"dayplan/internal/config"
	"dayplan/internal/http/handler"
	mw "dayplan/internal/http/middleware"
	"dayplan/internal/planner"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	plannerSvc := &planner.Service{DB: db}
	plannerQ := &planner.Query{DB: db}
	alarmSvc := &alarm.Service{DB: db}
	categorySvc := &category.Service{DB: db}

	schedH := &handler.ScheduleHandler{Svc: plannerSvc, Alarms: alarmSvc}
	schedR := &handler.ScheduleReadHandler{Query: plannerQ}
	todoH := &handler.TodoHandler{Svc: plannerSvc, Query: plannerQ}
	catH := &handler.CategoryHandler{Svc: categorySvc}

	r.Route("/schedules", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", schedH.Create)
		r.Get("/", schedR.Range)
		r.Get("/search", schedR.Search)

		r.Get("/{id}", schedR.Get)
		r.Put("/{id}", schedH.Update)
		r.Delete("/{id}", schedH.Delete)
		r.Get("/{id}/lineage", schedR.Lineage)

		r.Post("/{id}/split/front", schedH.SplitUpdate("front"))
		r.Post("/{id}/split/middle", schedH.SplitUpdate("middle"))
		r.Post("/{id}/split/back", schedH.SplitUpdate("back"))
		r.Delete("/{id}/split/front", schedH.SplitDelete("front"))
		r.Delete("/{id}/split/middle", schedH.SplitDelete("middle"))
		r.Delete("/{id}/split/back", schedH.SplitDelete("back"))

		r.Post("/{id}/alarms", schedH.AddAlarm)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", todoH.Create)
		r.Get("/", todoH.List)
		r.Get("/today", todoH.ListToday)
		r.Patch("/{id}/complete", todoH.Complete)
		r.Patch("/{id}/order", todoH.Reorder)
	})

	r.Route("/tags", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", todoH.Tags)
		r.Get("/{id}/todos", todoH.ListByTag)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", catH.Create)
		r.Get("/", catH.List)
		r.Patch("/{id}", catH.Update)
		r.Delete("/{id}", catH.Delete)
	})

	r.With(auth.RequireAuth(jwtSvc)).Delete("/alarms/{id}", schedH.DeleteAlarm)

	return r
}
