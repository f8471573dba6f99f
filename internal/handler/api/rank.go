package api

import (
	"errors"
	"time"

	models "VolRank/internal/domain/models"
	"VolRank/internal/middleware"
	rankmetrics "VolRank/internal/service/metrics"
	"VolRank/internal/usecase"
	"VolRank/pkg/cache"
	xhttp "VolRank/pkg/http"
	xlogger "VolRank/pkg/logger"
	xutil "VolRank/pkg/util"

	"github.com/labstack/echo/v4"
)

// RankEchoHandler serves the leaderboard and window views. Reads come from
// the leaderboard cache written by the pipeline, never from a live ranking
// pass.
type RankEchoHandler struct {
	logger *xlogger.Logger
	cache  cache.Service
	engine *usecase.RankEngine
}

func NewRankEchoHandler(logger *xlogger.Logger, c cache.Service, engine *usecase.RankEngine) *RankEchoHandler {
	rankmetrics.Register()
	return &RankEchoHandler{logger: logger, cache: c, engine: engine}
}

func (h *RankEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/rank", h.Rank)
	g.GET("/symbols", h.Symbols)
	g.GET("/window/:symbol", h.Window)
}

// Rank returns the top-K of the latest leaderboard for an interval.
func (h *RankEchoHandler) Rank(c echo.Context) error {
	start := time.Now()
	req := &models.RankRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var snap models.RankSnapshot
	key := middleware.LatestKeyFor(models.Interval(req.Interval))
	if err := h.cache.Get(c.Request().Context(), key, &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return xhttp.NotFoundResponse(c, "no ranking available yet for interval "+req.Interval)
		}
		rankmetrics.RankErrors.WithLabelValues("rank").Inc()
		h.logger.Error("leaderboard cache read failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	rankmetrics.RankLatency.WithLabelValues("rank").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, &models.RankSnapshot{
		Timestamp:  snap.Timestamp,
		Pass:       snap.Pass,
		Interval:   snap.Interval,
		PastSize:   snap.PastSize,
		RecentSize: snap.RecentSize,
		Skipped:    snap.Skipped,
		Entries:    snap.Top(req.Limit),
	})
}

// Symbols returns the tracked set in ranking order.
func (h *RankEchoHandler) Symbols(c echo.Context) error {
	symbols := h.engine.Symbols()
	return xhttp.ListResponse(c, symbols, int64(len(symbols)))
}

// Window returns the cached bar window for one symbol. Optional from/to
// query params narrow the range (aligned to bar boundaries) and last=N keeps
// only the N most recent bars.
func (h *RankEchoHandler) Window(c echo.Context) error {
	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, ok := h.engine.WindowFor(req.Symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no window for symbol "+req.Symbol)
	}
	bars := w.Bars()

	if fromStr, toStr := c.QueryParam("from"), c.QueryParam("to"); fromStr != "" || toStr != "" {
		from := xhttp.ParseTimeDefault(fromStr, time.Unix(0, 0))
		to := xhttp.ParseTimeDefault(toStr, time.Now().UTC())
		from, to = xutil.AlignFromTo(from, to, string(h.engine.Interval()))
		kept := bars[:0]
		for _, b := range bars {
			if b.StartTime >= from.UnixMilli() && b.StartTime <= to.UnixMilli() {
				kept = append(kept, b)
			}
		}
		bars = kept
	}
	if last := xhttp.ParseIntDefault(c.QueryParam("last"), 0); last > 0 && last < len(bars) {
		bars = bars[len(bars)-last:]
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}
