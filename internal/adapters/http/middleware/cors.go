package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const corsMaxAge = 12 * time.Hour

// CORS returns middleware answering browser preflights for the platform API.
// An empty list or one containing "*" allows every origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", HeaderRequestID, HeaderCorrelationID},
		ExposeHeaders: []string{
			"Location",
			"X-Trace-ID",
			HeaderRequestID,
			HeaderCorrelationID,
		},
		MaxAge: corsMaxAge,
	}

	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
