package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mini-todos/auth"
	"mini-todos/config"
	"mini-todos/db"
	"mini-todos/handlers"
	appmw "mini-todos/middleware"
	"mini-todos/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error: ", err)
	}

	conn, err := db.Connect(cfg.DSN)
	if err != nil {
		log.Fatal("DB connection error: ", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal("Migration error: ", err)
	}

	users := store.NewUserStore(conn)
	todos := store.NewTodoStore(conn)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	authHandler := handlers.NewAuthHandler(users, tokens, cfg.MinPasswordLen)
	todoHandler := handlers.NewTodoHandler(todos)

	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+appmw.AuthHeader)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", appmw.AuthHeader)
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/users", authHandler.Signup)
	r.Post("/users/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(appmw.RequireAuth(tokens, users))
		r.Get("/users/me", authHandler.Me)
		r.Delete("/users/me/token", authHandler.Logout)
		r.Post("/todos", todoHandler.Create)
		r.Get("/todos", todoHandler.List)
		r.Get("/todos/{id}", todoHandler.Get)
		r.Patch("/todos/{id}", todoHandler.Update)
		r.Delete("/todos/{id}", todoHandler.Delete)
	})

	log.Println("Server running on http://localhost:" + cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Server error: ", err)
	}
}
