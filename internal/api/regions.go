package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/radzone/internal/command"
	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/registry"
	"github.com/annel0/radzone/internal/vec"
)

// IrradiateRequest тело POST /api/regions/irradiate.
// Либо Args строкой команды ("x y z r [level]"), либо координаты полями.
type IrradiateRequest struct {
	Args   string  `json:"args"`
	X      *int    `json:"x"`
	Y      *int    `json:"y"`
	Z      *int    `json:"z"`
	Radius int     `json:"radius"`
	Level  float64 `json:"level"`
	Name   string  `json:"name"`
}

func (r IrradiateRequest) toRequest(ceiling int) (region.Request, error) {
	if r.Args != "" {
		req, err := command.ParseLine(r.Args, ceiling)
		if err != nil {
			return region.Request{}, err
		}
		req.Name = r.Name
		return req, nil
	}
	if r.X == nil || r.Y == nil || r.Z == nil {
		return region.Request{}, command.ErrUsage
	}
	return region.Request{
		Origin: vec.Vec3{X: *r.X, Y: *r.Y, Z: *r.Z},
		Radius: r.Radius,
		Level:  r.Level,
		Name:   r.Name,
	}, nil
}

// statusFor сопоставляет класс ошибки с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, region.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrRegionNotFound):
		return http.StatusNotFound
	case errors.Is(err, region.ErrEmptyRegion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, region.ErrCollaborator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestServer) respondSynthError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		rs.logger.Error("❌ Синтез зоны: %v", err)
	}
	respondError(c, status, region.UserMessage(err))
}

func (rs *RestServer) bindIrradiate(c *gin.Context) (region.Request, bool) {
	var body IrradiateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return region.Request{}, false
	}
	req, err := body.toRequest(rs.synth.MaxRange())
	if err != nil {
		rs.respondSynthError(c, err)
		return region.Request{}, false
	}
	return req, true
}

// handleIrradiate строит зону и регистрирует её
func (rs *RestServer) handleIrradiate(c *gin.Context) {
	req, ok := rs.bindIrradiate(c)
	if !ok {
		return
	}

	def, err := rs.synth.Synthesize(c.Request.Context(), req)
	if err != nil {
		rs.respondSynthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Зона создана",
		Data:    def,
	})
}

// handlePlan строит зону без регистрации
func (rs *RestServer) handlePlan(c *gin.Context) {
	req, ok := rs.bindIrradiate(c)
	if !ok {
		return
	}

	def, err := rs.synth.Plan(c.Request.Context(), req)
	if err != nil {
		rs.respondSynthError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "План зоны",
		Data:    def,
	})
}

func (rs *RestServer) handleListRegions(c *gin.Context) {
	defs, err := rs.registry.List(c.Request.Context(), rs.synth.WorldID())
	if err != nil {
		rs.respondSynthError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список регионов",
		Data: gin.H{
			"regions": defs,
			"total":   len(defs),
		},
	})
}

func (rs *RestServer) handleGetRegion(c *gin.Context) {
	def, err := rs.registry.Get(c.Request.Context(), rs.synth.WorldID(), c.Param("name"))
	if err != nil {
		if errors.Is(err, registry.ErrRegionNotFound) {
			respondError(c, http.StatusNotFound, "Регион не найден")
			return
		}
		rs.respondSynthError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Регион", Data: def})
}

// handleRegionsAt регионы, содержащие точку ?x=&y=&z=
func (rs *RestServer) handleRegionsAt(c *gin.Context) {
	var coords [3]int
	for i, key := range []string{"x", "y", "z"} {
		n, err := strconv.Atoi(c.Query(key))
		if err != nil {
			respondError(c, http.StatusBadRequest, "Параметры x, y, z должны быть целыми числами")
			return
		}
		coords[i] = n
	}
	pos := vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}

	defs, err := rs.registry.RegionsAt(c.Request.Context(), rs.synth.WorldID(), pos)
	if err != nil {
		rs.respondSynthError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Регионы в точке",
		Data: gin.H{
			"position": pos,
			"regions":  defs,
		},
	})
}

// handleDeleteRegion удаляет регион и публикует RegionRemoved
func (rs *RestServer) handleDeleteRegion(c *gin.Context) {
	ctx := c.Request.Context()
	worldID, name := rs.synth.WorldID(), c.Param("name")

	def, err := rs.registry.Get(ctx, worldID, name)
	if err == nil {
		err = rs.registry.Remove(ctx, worldID, name)
	}
	if err != nil {
		if errors.Is(err, registry.ErrRegionNotFound) {
			respondError(c, http.StatusNotFound, "Регион не найден")
			return
		}
		rs.respondSynthError(c, err)
		return
	}

	rs.logger.Info("🗑️ Регион %s удалён", def.Key())
	rs.publish(ctx, eventbus.TypeRegionRemoved, def)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Регион удалён",
	})
}

func (rs *RestServer) publish(ctx context.Context, eventType string, def region.Definition) {
	if rs.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, "api", def)
	if err != nil {
		rs.logger.Error("❌ Событие %s: %v", eventType, err)
		return
	}
	ev.CorrelationID = def.Key()
	ev.Metadata["world"] = def.WorldID
	if err := rs.bus.Publish(ctx, ev); err != nil {
		rs.logger.Error("❌ Публикация %s для %s: %v", eventType, def.Name, err)
	}
}
