package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/middleware"
	"github.com/krishkalaria12/decor-serve/service"
)

type ImageHandler struct {
	images *service.ImageService
}

func NewImageHandler(images *service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

type markUploadedRequest struct {
	StorageID string `json:"storageId" validate:"required"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Base   string `json:"base" validate:"omitempty,oneof=original decorated"`
}

func imageID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func (h *ImageHandler) GenerateUploadURL(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	ticket, err := h.images.GenerateUploadURL(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusCreated, "Upload URL created", ticket)
}

func (h *ImageHandler) MarkUploaded(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := imageID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid image id")
	}

	var req markUploadedRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	img, err := h.images.MarkUploaded(c.UserContext(), userID, id, req.StorageID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Image uploaded", img)
}

// UploadFile accepts the original as multipart field "document".
func (h *ImageHandler) UploadFile(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := imageID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid image id")
	}

	file, err := c.FormFile("document")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file provided")
	}

	blobFile, err := file.Open()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Error opening the file")
	}
	defer blobFile.Close()

	img, err := h.images.UploadDirect(c.UserContext(), userID, id, blobFile, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Image uploaded", img)
}

func (h *ImageHandler) Generate(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := imageID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid image id")
	}

	var req generateRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &req); !ok {
			return err
		}
	}

	img, err := h.images.StartGeneration(c.UserContext(), userID, id, req.Prompt, req.Base)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusAccepted, "Generation started", img)
}

func (h *ImageHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	images, err := h.images.List(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Images found", images)
}

func (h *ImageHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := imageID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid image id")
	}

	img, err := h.images.Get(c.UserContext(), userID, id)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Image found", img)
}

func (h *ImageHandler) Delete(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := imageID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid image id")
	}

	if err := h.images.Delete(c.UserContext(), userID, id); err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Image deleted", nil)
}
