package web

import (
	"os"

	"github.com/iris-contrib/middleware/cors"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/logger"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"campus-transit/internal/reservations"
)

type Router struct {
	App            *iris.Application
	DB             *mongo.Database
	Routes         []*Route
	ConflictPolicy reservations.ConflictPolicy
}

func NewRouter(mongoDB *mongo.Database) *Router {
	router := &Router{
		App:            iris.New(),
		DB:             mongoDB,
		ConflictPolicy: reservations.PolicyFromEnv(),
	}
	return router
}

func (r *Router) Init() {
	r.App.Use(logger.New())

	if os.Getenv("DEBUG") != "" {
		log.Warning("Cross Origin requests allowed (ENV::DEBUG)")
		r.App.UseRouter(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		}))
	}

	r.Routes = append(r.Routes, addRouteAuth(r)...)
	r.Routes = append(r.Routes, addRouteProfile(r)...)
	r.Routes = append(r.Routes, addRouteReservations(r)...)
	r.Routes = append(r.Routes, addRouteSchedule(r)...)
	r.Routes = append(r.Routes, addRouteSearch(r)...)

	log.Info("Loading all routes...")
	log.Infof("Found %d route(s).", len(r.Routes))
	if len(r.Routes) > 0 {
		log.Info("Skipping routes that require JWT...")
		r.LoadRoutes(false)

		log.Info("Enabling JWT Middleware...")
		r.App.Use(VerifySession())

		log.Info("Loading JWT routes...")
		r.LoadRoutes(true)
	} else {
		log.Error("Failed to load JWT routes. No routes found.")
	}
}

func (r *Router) LoadRoutes(JWT bool) {
	for n := range r.Routes {
		v := r.Routes[n]

		if !v.JWT && JWT {
			continue
		}

		if v.JWT && !JWT {
			continue
		}

		log.Infof("Loaded route: %s (%s) - %s", v.Name, v.Type, v.Path)
		if v.Type == RouteType_GET {
			r.App.Get(v.Path, func(ctx iris.Context) {
				err := v.Func(ctx)
				if err != nil {
					log.Error(err)
					return
				}
			})
		} else if v.Type == RouteType_POST {
			r.App.Post(v.Path, func(ctx iris.Context) {
				err := v.Func(ctx)
				if err != nil {
					log.Error(err)
					return
				}
			})
		}
	}
}

func (r *Router) Listen(host string) {
	err := r.App.Listen(host)
	if err != nil {
		log.Error(err)
		return
	}
}
