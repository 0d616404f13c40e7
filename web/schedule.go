package web

import (
	"net/http"

	"github.com/kataras/iris/v12"

	"campus-transit/internal/auth"
	"campus-transit/internal/reservations"
)

func addRouteSchedule(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Schedule Slot",
		Path: "/schedule/{date}/{location}/{time}",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			_, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			leg, ok := reservations.ParseLeg(ctx.URLParam("buttonClicked"))
			if !ok {
				ctx.StatusCode(http.StatusBadRequest)
				return ctx.JSON(iris.Map{"error": "Invalid button type"})
			}

			result, err := reservations.FindSlot(
				ctx.Params().Get("date"),
				ctx.Params().Get("location"),
				ctx.Params().Get("time"),
				leg,
				r.DB,
			)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return ctx.JSON(iris.Map{"error": "Failed to retrieve reservations"})
			}

			if result == nil {
				result = []reservations.Reservation{}
			}

			return ctx.JSON(result)
		},
		Type: RouteType_GET,
	})

	return tempRoutes
}
