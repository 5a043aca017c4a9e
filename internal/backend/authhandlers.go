package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jo-hoe/cubediary/internal/auth"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookieName = "cubediary_session"
	sessionContextKey = "session"
)

type credentialsRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(ctx echo.Context) string {
	if header := ctx.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// requireSession rejects requests without a live session and stores the
// session for the handlers behind it.
func (service *APIService) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		session, err := service.coreService.Auth().Session(ctx.Request().Context(), sessionToken(ctx))
		if err != nil {
			return writeError(ctx, "requireSession", err)
		}
		ctx.Set(sessionContextKey, session)
		return next(ctx)
	}
}

func callerOf(ctx echo.Context) *auth.Session {
	session, _ := ctx.Get(sessionContextKey).(*auth.Session)
	return session
}

func setSessionCookie(ctx echo.Context, session *auth.Session) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (service *APIService) bindCredentials(ctx echo.Context) (*credentialsRequest, error) {
	var request credentialsRequest
	if err := ctx.Bind(&request); err != nil {
		return nil, err
	}
	if err := ctx.Validate(&request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (service *APIService) signUpHandler(ctx echo.Context) error {
	request, err := service.bindCredentials(ctx)
	if err != nil {
		return err
	}
	session, err := service.coreService.Auth().SignUp(ctx.Request().Context(), request.Email, request.Password)
	if err != nil {
		return writeError(ctx, "signUpHandler", err)
	}
	setSessionCookie(ctx, session)
	return ctx.JSON(http.StatusCreated, session)
}

func (service *APIService) signInHandler(ctx echo.Context) error {
	request, err := service.bindCredentials(ctx)
	if err != nil {
		return err
	}
	session, err := service.coreService.Auth().SignIn(ctx.Request().Context(), request.Email, request.Password)
	if err != nil {
		return writeError(ctx, "signInHandler", err)
	}
	setSessionCookie(ctx, session)
	return ctx.JSON(http.StatusOK, session)
}

func (service *APIService) guestSignInHandler(ctx echo.Context) error {
	session, err := service.coreService.Auth().SignInAnonymously(ctx.Request().Context())
	if err != nil {
		return writeError(ctx, "guestSignInHandler", err)
	}
	setSessionCookie(ctx, session)
	return ctx.JSON(http.StatusOK, session)
}

func (service *APIService) signOutHandler(ctx echo.Context) error {
	if err := service.coreService.Auth().SignOut(ctx.Request().Context(), sessionToken(ctx)); err != nil {
		return writeError(ctx, "signOutHandler", err)
	}
	clearSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (service *APIService) sessionHandler(ctx echo.Context) error {
	setNoCache(ctx)
	return ctx.JSON(http.StatusOK, callerOf(ctx))
}

// sessionEventsHandler streams the caller's sign-in and sign-out events as
// server-sent events. The stream ends when the caller's own session signs out.
func (service *APIService) sessionEventsHandler(ctx echo.Context) error {
	caller := callerOf(ctx)
	events, unsubscribe := service.coreService.Auth().Subscribe()
	defer unsubscribe()

	response := ctx.Response()
	header := response.Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(response, ": connected\n\n"); err != nil {
		return nil
	}
	response.Flush()

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.UserID != caller.UserID {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to encode session event: %w", err)
			}
			if _, err := fmt.Fprintf(response, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
				return nil
			}
			response.Flush()
			if event.Kind == auth.SignedOut && event.SessionToken == caller.Token {
				return nil
			}
		}
	}
}
