package http

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
)

// TaskHandler tareas en segundo plano (protegido).
type TaskHandler struct {
	svc *jobs.Service
}

// NewTaskHandler construye el handler.
func NewTaskHandler(svc *jobs.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// ImportMovements godoc
// @Summary      Importar movimientos desde CSV
// @Description  Columnas sku,type,quantity[,reason,reference,idempotency_key]. Todo o nada, en una transacción.
// @Tags         tasks
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "archivo CSV"
// @Success      202   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/tasks/import-movements [post]
func (h *TaskHandler) ImportMovements(c *fiber.Ctx) error {
	data, err := uploadedFile(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "no se pudo leer el archivo"})
	}
	task, err := h.svc.StartImport(GetActor(c), data)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.TaskFromJob(task))
}

// uploadedFile lee el campo "file" o, si no hay multipart, el cuerpo completo.
// El cuerpo se copia: Fiber reutiliza el buffer al terminar el handler.
func uploadedFile(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return append([]byte(nil), c.Body()...), nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// RegenerateForecasts godoc
// @Summary      Regenerar pronósticos
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Success      202  {object}  dto.TaskResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/forecast-regenerate [post]
func (h *TaskHandler) RegenerateForecasts(c *fiber.Ctx) error {
	task, err := h.svc.StartForecastRegeneration(GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.TaskFromJob(task))
}

// List godoc
// @Summary      Listar tareas visibles
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TaskResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.List(GetActor(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.TaskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.TaskFromJob(t))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Estado de una tarea
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la tarea"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetByID(c *fiber.Ctx) error {
	task, err := h.svc.Get(GetActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TaskFromJob(task))
}

// Cancel godoc
// @Summary      Cancelar tarea
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la tarea"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/cancel [post]
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	if err := h.svc.Cancel(GetActor(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
