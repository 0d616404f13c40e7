package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kataras/iris/v12"

	"campus-transit/internal"
	"campus-transit/internal/auth"
)

func addRouteAuth(r *Router) []*Route {
	var tempRoutes []*Route

	tempRoutes = append(tempRoutes, &Route{
		Name: "Login",
		Path: "/auth/login",
		JWT:  false,
		Func: func(ctx iris.Context) error {
			body, err := ctx.GetBody()
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			var l auth.Login
			err = json.Unmarshal(body, &l)
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			t, err := l.Login(r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return nil
			}

			ctx.ContentType("application/json")
			_, err = ctx.Write([]byte(t))
			return err
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Register",
		Path: "/auth/register",
		JWT:  false,
		Func: func(ctx iris.Context) error {
			body, err := ctx.GetBody()
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			var reg auth.Register
			err = json.Unmarshal(body, &reg)
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return err
			}

			t, err := reg.Register(r.DB)
			if err != nil {
				if errors.Is(err, internal.ErrDuplicateID) {
					ctx.StatusCode(http.StatusConflict)
				} else {
					ctx.StatusCode(http.StatusBadRequest)
				}
				return err
			}

			ctx.ContentType("application/json")
			_, err = ctx.Write([]byte(t))
			return err
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Forgot Password",
		Path: "/auth/forgot-password",
		JWT:  false,
		Func: func(ctx iris.Context) error {
			body, err := ctx.GetBody()
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			var fp auth.ForgotPassword
			err = json.Unmarshal(body, &fp)
			if err != nil {
				ctx.StatusCode(http.StatusBadRequest)
				return nil
			}

			err = fp.Reset(r.DB)
			if err != nil {
				// Same answer for a bad email and a bad code.
				ctx.StatusCode(http.StatusUnauthorized)
				return nil
			}

			return ctx.JSON(iris.Map{"reset": true})
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Security Check",
		Path: "/auth/security-check",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			account, session, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			var req struct {
				SecurityCode string `json:"securityCode"`
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

			verified, err := auth.VerifySecondFactor(account.IDNumber, req.SecurityCode, session, r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return err
			}
			if !verified {
				ctx.StatusCode(http.StatusUnauthorized)
				return ctx.JSON(iris.Map{"verified": false})
			}

			return ctx.JSON(iris.Map{"verified": true})
		},
		Type: RouteType_POST,
	})

	tempRoutes = append(tempRoutes, &Route{
		Name: "Logout",
		Path: "/auth/logout",
		JWT:  true,
		Func: func(ctx iris.Context) error {
			_, session, err := auth.GetAccount(GetClaims(ctx), r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusUnauthorized)
				return err
			}

			err = session.Delete(r.DB)
			if err != nil {
				ctx.StatusCode(http.StatusInternalServerError)
				return err
			}

			return ctx.JSON(iris.Map{"loggedOut": true})
		},
		Type: RouteType_POST,
	})

	return tempRoutes
}
