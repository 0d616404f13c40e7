package web

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"

	"campus-transit/internal/accounts"
	"campus-transit/internal/auth"
	"campus-transit/internal/reservations"
)

// canonicalProfilePath is where an identity-mismatched request gets sent:
// always the caller's own page, never another account's data.
func canonicalProfilePath(account *accounts.Account) string {
	if account.Role == accounts.RoleAdmin {
		return "/profile/admin?idNumber=" + account.IDNumber
	}
	return "/profile?idNumber=" + account.IDNumber
}

// profileDetails is the view model for a profile page. The stored Default
// sentinel maps to the path the static file server actually exposes.
func profileDetails(account *accounts.Account) iris.Map {
	picture := account.ProfilePicture
	if picture == accounts.DefaultProfilePicture || picture == "" {
		picture = "images/profilepictures/Default.png"
	}

	return iris.Map{
		"idNumber":       account.IDNumber,
		"firstName":      account.FirstName,
		"lastName":       account.LastName,
		"designation":    account.Designation,
		"passengerType":  account.PassengerType,
		"profilePicture": picture,
		"isAdmin":        account.Role == accounts.RoleAdmin,
	}
}

func addRouteProfile(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Profile",
		Path: "/profile",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if ctx.URLParam("idNumber") != account.IDNumber || account.Role == accounts.RoleAdmin {
				ctx.Redirect(canonicalProfilePath(account), iris.StatusFound)
				return nil
			}

			return ctx.JSON(profileDetails(account))
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Profile Admin",
		Path: "/profile/admin",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if ctx.URLParam("idNumber") != account.IDNumber || account.Role != accounts.RoleAdmin {
				ctx.Redirect(canonicalProfilePath(account), iris.StatusFound)
				return nil
			}

			return ctx.JSON(profileDetails(account))
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Settings",
		Path: "/settings",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, session, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if ctx.URLParam("idNumber") != account.IDNumber {
				ctx.Redirect("/settings?idNumber="+account.IDNumber, iris.StatusFound)
				return nil
			}

			details := profileDetails(account)
			details["securityVerified"] = session.SecurityVerified

			return ctx.JSON(details)
		},
		Type: RouteType_GET,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Change Public Info",
		Path: "/settings/public-info",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			upd := accounts.ProfileUpdate{}
			if ctx.FormValue("newFirstName") != "" && ctx.FormValue("newLastName") != "" {
				upd.FirstName = ctx.FormValue("newFirstName")
				upd.LastName = ctx.FormValue("newLastName")
			}

			_, file, err := ctx.FormFile("profilePicture")
			if err == nil && file != nil {
				dir := os.Getenv("PICTURE_DIR")
				if dir == "" {
					dir = "public/images/profilepictures"
				}
				name := uuid.NewString() + filepath.Ext(file.Filename)
				_, err = ctx.SaveFormFile(file, filepath.Join(dir, name))
				if err != nil {
					ctx.Redirect("/settings?idNumber="+account.IDNumber+"&infoChangeSuccess=false", iris.StatusFound)
					return err
				}
				upd.ProfilePicture = "images/profilepictures/" + name
			}

			err = accounts.UpdateProfile(account.IDNumber, upd, r.DB)
			if err != nil {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&infoChangeSuccess=false", iris.StatusFound)
				return nil
			}

			ctx.Redirect(canonicalProfilePath(account)+"&infoChangeSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Change Private Info",
		Path: "/settings/private-info",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			upd := accounts.ProfileUpdate{
				Designation:   ctx.FormValue("newDesignation"),
				PassengerType: ctx.FormValue("newPassengerType"),
			}

			err = accounts.UpdateProfile(account.IDNumber, upd, r.DB)
			if err != nil {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&infoChangeSuccess=false", iris.StatusFound)
				return nil
			}

			ctx.Redirect(canonicalProfilePath(account)+"&infoChangeSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Change Password",
		Path: "/settings/password",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, session, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			// Second factor first: the session must have passed the
			// security check in this login.
			if !session.SecurityVerified {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&pwChangeSuccess=false", iris.StatusFound)
				return nil
			}

			err = accounts.UpdatePassword(account.IDNumber, ctx.FormValue("currentPassword"), ctx.FormValue("newPassword"), r.DB)
			if err != nil {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&pwChangeSuccess=false", iris.StatusFound)
				return nil
			}

			ctx.Redirect(canonicalProfilePath(account)+"&pwChangeSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Change Security Code",
		Path: "/settings/security-code",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, session, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			if !session.SecurityVerified {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&codeChangeSuccess=false", iris.StatusFound)
				return nil
			}

			err = accounts.UpdateSecurityCode(account.IDNumber, ctx.FormValue("currentSecCode"), ctx.FormValue("newSecCode"), r.DB)
			if err != nil {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&codeChangeSuccess=false", iris.StatusFound)
				return nil
			}

			ctx.Redirect(canonicalProfilePath(account)+"&codeChangeSuccess=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Delete Account",
		Path: "/settings/delete-account",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, _, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			err = accounts.Delete(account.IDNumber, ctx.FormValue("password"), r.DB)
			if err != nil {
				ctx.Redirect("/settings?idNumber="+account.IDNumber+"&deleteAccountSuccess=false", iris.StatusFound)
				return nil
			}

			// Cascade: the account's reservations and sessions go with it.
			err = reservations.DeleteAllForAccount(account.IDNumber, r.DB)
			if err != nil {
				return err
			}
			err = auth.DeleteAllForAccount(account.ID, r.DB)
			if err != nil {
				return err
			}

			ctx.Redirect("/auth/login?accountDeleted=true", iris.StatusFound)
			return nil
		},
		Type: RouteType_POST,
	})

	return tempRoutes
}
