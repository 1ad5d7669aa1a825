package handlers

import (
	"strconv"

	"fleetledger/internal/common"
	"fleetledger/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// pathUUID parses a path parameter, writing the validation response itself
// when it fails. ok is false when the handler should return immediately.
func pathUUID(c echo.Context, name string) (uuid.UUID, bool, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, false, common.SendValidationError(c, name, err.Error())
	}
	return id, true, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// pagination reads limit and offset query parameters.
func pagination(c echo.Context) (int, int, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return common.ValidatePaginationParams(limit, offset)
}

// actor returns the body actor, falling back to the X-Actor header.
func actor(c echo.Context, fromBody *string) *string {
	if fromBody != nil && *fromBody != "" {
		return fromBody
	}
	if h := c.Request().Header.Get(middleware.ActorHeader); h != "" {
		return &h
	}
	return nil
}
