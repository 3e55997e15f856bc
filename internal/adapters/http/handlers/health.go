// Package handlers provides HTTP request handlers for the service.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/platform-service/internal/ports"
)

// ProbePrefix groups the operational routes.
const ProbePrefix = "/-"

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
}

// HealthHandler serves the liveness, readiness, build and metrics probes.
type HealthHandler struct {
	registry ports.HealthRegistry
	build    BuildInfo
	started  time.Time
}

func NewHealthHandler(registry ports.HealthRegistry, build BuildInfo) *HealthHandler {
	if registry == nil {
		panic("HealthHandler: registry is required")
	}

	return &HealthHandler{registry: registry, build: build, started: time.Now()}
}

type liveness struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Liveness answers as long as the process can serve HTTP. Dependencies are
// not consulted.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, liveness{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	})
}

type readiness struct {
	Status    string                        `json:"status"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
	CheckedAt time.Time                     `json:"checkedAt"`
}

// Readiness runs the registered checks. Only an unhealthy store takes the
// service out of rotation with a 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	res := h.registry.CheckAll(c.Request.Context())

	code := http.StatusOK
	if !res.Status.Ready() {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, readiness{Status: string(res.Status), Checks: res.Checks, CheckedAt: res.Timestamp})
}

func (h *HealthHandler) Build(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// Mount adds live, ready, build and metrics under rg. Metrics come from the
// default Prometheus registry.
func (h *HealthHandler) Mount(rg *gin.RouterGroup) {
	rg.GET("/live", h.Liveness)
	rg.GET("/ready", h.Readiness)
	rg.GET("/build", h.Build)
	rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
