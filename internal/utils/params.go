package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID parses a path parameter as an unsigned id.
func ParamID(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, fmt.Errorf("%s not found", name)
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}

	return uint(id), nil
}
