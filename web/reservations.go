package web

import (
	"net/http"

	"github.com/kataras/iris/v12"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campus-transit/internal/accounts"
	"campus-transit/internal/auth"
	"campus-transit/internal/reservations"
)

// reservationFromForm reads the booking form's slot fields.
func reservationFromForm(ctx iris.Context, idNumber string) reservations.Reservation {
	return reservations.Reservation{
		IDNumber:    idNumber,
		StartCampus: ctx.FormValue("startCampus"),
		Date:        ctx.FormValue("date"),
		EntryLoc:    ctx.FormValue("entryLoc"),
		EntryTime:   ctx.FormValue("entryTime"),
		ExitLoc:     ctx.FormValue("exitLoc"),
		ExitTime:    ctx.FormValue("exitTime"),
	}
}

// mayTouch is the ledger's mutation rule: only the owner updates or
// deletes a reservation. Admins act for another account at creation time
// only.
func mayTouch(account *accounts.Account, res *reservations.Reservation) bool {
	return account.IDNumber == res.IDNumber
}

func addRouteReservations(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Get Reservations",
		Path: "/reservations",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if ctx.URLParam("idNumber") != account.IDNumber {
				ctx.Redirect("/reservations?idNumber="+account.IDNumber, iris.StatusFound)
				return nil
			}

			result, err := reservations.FindForAccount(account.IDNumber, r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return err
			}

			return ctx.JSON(iris.Map{
				"idNumber": account.IDNumber,
				"isAdmin":  account.Role == accounts.RoleAdmin,
				"result":   result,
			})
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "New Reservation",
		Path: "/reservations",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			// Admins may book on behalf of another account; regular
			// accounts only for themselves.
			idNumber := account.IDNumber
			if target := ctx.FormValue("targetIdNumber"); target != "" && target != account.IDNumber {
				if account.Role != accounts.RoleAdmin {
					ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&reserveSuccess=false", iris.StatusFound)
					return nil
				}
				_, err := accounts.FromIDNumber(target, r.DB)
				if err != nil {
					ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&reserveSuccess=false", iris.StatusFound)
					return nil
				}
				idNumber = target
			}

			res := reservationFromForm(ctx, idNumber)
			err = res.Create(r.ConflictPolicy, r.DB)
			if err != nil {
				ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&reserveSuccess=false", iris.StatusFound)
				return nil
			}

			ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&reserveSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Update Reservation",
		Path: "/reservations/update",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			fail := "/reservations?idNumber=" + account.IDNumber + "&isUpdateSuccess=false"

			id, err := primitive.ObjectIDFromHex(ctx.FormValue("reservationID"))
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			current, err := reservations.FromID(id, r.DB)
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}
			if !mayTouch(account, current) {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			next := reservationFromForm(ctx, current.IDNumber)
			next.ID = id
			err = next.Update(r.ConflictPolicy, r.DB)
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&isUpdateSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Delete Reservation",
		Path: "/reservations/delete",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			fail := "/reservations?idNumber=" + account.IDNumber + "&isDeleteSuccess=false"

			id, err := primitive.ObjectIDFromHex(ctx.FormValue("reservationID"))
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			current, err := reservations.FromID(id, r.DB)
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}
			if !mayTouch(account, current) {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			err = reservations.Delete(id, r.DB)
			if err != nil {
				ctx.Redirect(fail, iris.StatusFound)
				return nil
			}

			ctx.Redirect("/reservations?idNumber="+account.IDNumber+"&isDeleteSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	return tempRoutes
}
