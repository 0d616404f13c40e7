package web

import (
	"encoding/json"
	"net/http"

	"github.com/kataras/iris/v12"

	"campus-transit/internal/accounts"
	"campus-transit/internal/auth"
	"campus-transit/internal/reservations"
)

// Search is the admin-only directory. Regular accounts get bounced to
// their own profile, same as any other identity mismatch.
func addRouteSearch(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Search Users",
		Path: "/search/users",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if account.Role != accounts.RoleAdmin {
				ctx.Redirect(canonicalProfilePath(account), iris.StatusFound)
				return nil
			}

			var req struct {
				Payload string `json:"payload"`
			}
			body, err := ctx.GetBody()
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}
			if err := json.Unmarshal(body, &req); err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			result, err := accounts.Search(req.Payload, r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return ctx.JSON(iris.Map{"error": "Search failed"})
			}

			if result == nil {
				result = []accounts.Account{}
			}

			return ctx.JSON(iris.Map{"payload": result})
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Search Profile",
		Path: "/search/profile",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if account.Role != accounts.RoleAdmin {
				ctx.Redirect(canonicalProfilePath(account), iris.StatusFound)
				return nil
			}

			target, err := accounts.FromIDNumber(ctx.URLParam("idNumber"), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusNotFound)
				return ctx.JSON(iris.Map{"error": "User not found"})
			}

			return ctx.JSON(profileDetails(target))
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Search Reservations",
		Path: "/search/reservations",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if account.Role != accounts.RoleAdmin {
				ctx.Redirect(canonicalProfilePath(account), iris.StatusFound)
				return nil
			}

			idNumber := ctx.URLParam("idNumber")
			result, err := reservations.FindForAccount(idNumber, r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return ctx.JSON(iris.Map{"error": "Failed to retrieve reservations"})
			}

			if result == nil {
				result = []reservations.Reservation{}
			}

			return ctx.JSON(iris.Map{"idNumber": idNumber, "result": result})
		},
		Type: RouteType_GET,
	})

	return tempRoutes
}
