package server

import (
	"net/http"
	"strconv"

	"github.com/brettbedarf/dirstore"
	"github.com/labstack/echo/v4"
)

// HeaderEntityUID carries the caller identity. It is trusted as-is.
const HeaderEntityUID = "X-Entity-Uid"

const ownerContextKey = "dirstore.owner"

// requireOwner rejects requests without a valid identity header with 403.
func requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(HeaderEntityUID)
		if raw == "" {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden").
				SetInternal(errMissingIdentity)
		}
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusForbidden, "Forbidden").SetInternal(err)
		}
		c.Set(ownerContextKey, dirstore.OwnerID(uid))
		return next(c)
	}
}

// ownerOf returns the identity stored by requireOwner.
func ownerOf(c echo.Context) dirstore.OwnerID {
	owner, _ := c.Get(ownerContextKey).(dirstore.OwnerID)
	return owner
}
