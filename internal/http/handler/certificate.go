package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"certverify/internal/http/views"
	"certverify/internal/qrcode"
	"certverify/internal/service"
	"certverify/internal/tabular"
)

// Form field carrying the uploaded spreadsheet.
const uploadField = "csv_file"

// Messages shown on the HTML pages.
const (
	msgNoFile         = "No file uploaded."
	msgNoSelection    = "No file selected."
	msgInvalidFormat  = "Invalid file format. Only .csv files allowed."
	msgProcessingFail = "Error processing CSV."
	msgUploadSuccess  = "Certificates processed successfully!"
	msgNotFound       = "Certificate not found."
	msgDatabaseError  = "Database error."
	msgFileNotFound   = "File not found."
	msgArchiveFail    = "Error creating archive."
)

func render(c *fiber.Ctx, status int, page string, data fiber.Map) error {
	return c.Status(status).Render(page, data, views.Layout)
}

// Index renders the landing page.
func Index() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, fiber.StatusOK, "index", fiber.Map{})
	}
}

// UploadForm renders the empty upload form.
func UploadForm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, fiber.StatusOK, "upload", fiber.Map{"Title": "Upload"})
	}
}

// UploadCertificates godoc
// @Summary Bulk upload certificates
// @Description Accepts a CSV with certificate_id, recipient_name, course_title and issue_date columns, generates one QR code per row and upserts every row in one transaction.
// @Tags certificates
// @Accept multipart/form-data
// @Produce html
// @Param csv_file formData file true "Certificate spreadsheet (.csv)"
// @Success 200 {string} string "upload page with the processed count"
// @Failure 400 {string} string "no file, no selection or wrong extension"
// @Failure 422 {string} string "missing required columns"
// @Failure 500 {string} string "processing failed"
// @Router /upload [post]
func UploadCertificates(svc service.CertificateService, publicBaseURL string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := fiber.Map{"Title": "Upload"}
		fail := func(status int, msg string) error {
			data["Error"] = msg
			return render(c, status, "upload", data)
		}

		form, err := c.MultipartForm()
		if err != nil {
			return fail(fiber.StatusBadRequest, msgNoFile)
		}
		files := form.File[uploadField]
		if len(files) == 0 {
			// Browsers submit an empty file input as a plain field with no filename.
			if _, ok := form.Value[uploadField]; ok {
				return fail(fiber.StatusBadRequest, msgNoSelection)
			}
			return fail(fiber.StatusBadRequest, msgNoFile)
		}
		fh := files[0]
		if fh.Filename == "" {
			return fail(fiber.StatusBadRequest, msgNoSelection)
		}

		f, err := fh.Open()
		if err != nil {
			logger.Error("upload_open_failed", zap.String("filename", fh.Filename), zap.Error(err))
			return fail(fiber.StatusInternalServerError, msgProcessingFail)
		}
		defer f.Close()

		baseURL := publicBaseURL
		if baseURL == "" {
			baseURL = c.BaseURL() + "/"
		}

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:   f,
			Filename: fh.Filename,
			BaseURL:  baseURL,
		})
		if err != nil {
			var missing *tabular.MissingColumnsError
			switch {
			case errors.Is(err, service.ErrFileRequired):
				return fail(fiber.StatusBadRequest, msgNoSelection)
			case errors.Is(err, service.ErrInvalidExtension):
				return fail(fiber.StatusBadRequest, msgInvalidFormat)
			case errors.As(err, &missing):
				data["Missing"] = missing.Columns
				return fail(fiber.StatusUnprocessableEntity, "Missing required columns: "+strings.Join(missing.Columns, ", "))
			default:
				logger.Error("upload_failed",
					zap.String("request_id", requestIDFromCtx(c)),
					zap.String("filename", fh.Filename),
					zap.Error(err),
				)
				return fail(fiber.StatusInternalServerError, msgProcessingFail)
			}
		}

		logger.Info("upload_committed", zap.String("filename", res.Filename), zap.Int("count", res.Count))
		data["Success"] = msgUploadSuccess
		data["Count"] = res.Count
		data["Filename"] = res.Filename
		data["BundleURL"] = "/bulk_download_qrcodes/" + url.PathEscape(res.Filename)
		return render(c, fiber.StatusOK, "upload", data)
	}
}

// Verify godoc
// @Summary Verify a certificate
// @Description Looks a certificate up by identifier, given as path segment or certificate_id query parameter.
// @Tags certificates
// @Produce html
// @Param id path string false "Certificate identifier"
// @Param certificate_id query string false "Certificate identifier"
// @Success 200 {string} string "certificate details"
// @Failure 404 {string} string "Certificate not found."
// @Failure 500 {string} string "Database error."
// @Router /verify/{id} [get]
func Verify(svc service.CertificateService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathParam(c, "id")
		if err != nil {
			return err
		}
		if id == "" {
			id = c.Query("certificate_id")
		}
		data := fiber.Map{"Title": "Verify", "CertificateID": id}
		if id == "" {
			return render(c, fiber.StatusOK, "verify", data)
		}

		cert, err := svc.Verify(c.UserContext(), id)
		if err != nil {
			return verifyError(c, logger, data, err)
		}

		data["Certificate"] = cert
		data["QRCodeURL"] = "/static/qrcodes/" + url.PathEscape(qrcode.ImageKey(id))
		data["DownloadURL"] = "/verify_download/" + url.PathEscape(id)
		return render(c, fiber.StatusOK, "verify", data)
	}
}

func verifyError(c *fiber.Ctx, logger *zap.Logger, data fiber.Map, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		data["Error"] = msgNotFound
		return render(c, fiber.StatusNotFound, "verify", data)
	}
	logger.Error("certificate_lookup_failed",
		zap.String("request_id", requestIDFromCtx(c)),
		zap.Any("certificate_id", data["CertificateID"]),
		zap.Error(err),
	)
	data["Error"] = msgDatabaseError
	return render(c, fiber.StatusInternalServerError, "verify", data)
}

// VerifyDownload godoc
// @Summary Download certificate data
// @Description Returns a one-row CSV with the stored certificate fields. Unknown identifiers render the verify page instead of a file.
// @Tags certificates
// @Produce text/csv
// @Param id path string true "Certificate identifier"
// @Success 200 {file} file "certificate_{id}.csv"
// @Failure 404 {string} string "Certificate not found."
// @Router /verify_download/{id} [get]
func VerifyDownload(svc service.CertificateService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathParam(c, "id")
		if err != nil {
			return err
		}
		data, err := svc.ExportCSV(c.UserContext(), id)
		if err != nil {
			return verifyError(c, logger, fiber.Map{"Title": "Verify", "CertificateID": id}, err)
		}

		// Attachment keeps only the last path element of the name.
		c.Attachment("certificate_" + strings.ReplaceAll(id, "/", "_") + ".csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(data)
	}
}

// BulkDownloadQRCodes godoc
// @Summary Download every QR code of an uploaded file
// @Description Zips the QR code images of all identifiers in a previously uploaded CSV. Images that no longer exist are skipped.
// @Tags certificates
// @Produce application/zip
// @Param filename path string true "Uploaded CSV filename"
// @Success 200 {file} file "{stem}_qrcodes.zip"
// @Failure 404 {string} string "File not found."
// @Router /bulk_download_qrcodes/{filename} [get]
func BulkDownloadQRCodes(svc service.CertificateService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename, err := pathParam(c, "filename")
		if err != nil {
			return c.Status(fiber.StatusNotFound).SendString(msgFileNotFound)
		}
		bundle, err := svc.BundleQRCodes(c.UserContext(), filename)
		if err != nil {
			if errors.Is(err, service.ErrSourceNotFound) {
				return c.Status(fiber.StatusNotFound).SendString(msgFileNotFound)
			}
			logger.Error("bundle_failed",
				zap.String("request_id", requestIDFromCtx(c)),
				zap.String("filename", filename),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).SendString(msgArchiveFail)
		}

		c.Attachment(bundle.Filename)
		c.Set(fiber.HeaderContentType, "application/zip")
		return c.Send(bundle.Data)
	}
}

// QRCodeImage godoc
// @Summary QR code image
// @Tags certificates
// @Produce png
// @Param name path string true "{certificate_id}.png"
// @Success 200 {file} file
// @Failure 404 {object} errorPayload
// @Router /static/qrcodes/{name} [get]
func QRCodeImage(svc service.CertificateService, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := pathParam(c, "name")
		if err != nil {
			return err
		}
		id, ok := strings.CutSuffix(name, ".png")
		if !ok || id == "" {
			return fiber.ErrNotFound
		}

		rc, info, err := svc.QRCode(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrIDRequired) {
				return fiber.ErrNotFound
			}
			logger.Error("qrcode_open_failed", zap.String("certificate_id", id), zap.Error(err))
			return err
		}

		c.Set(fiber.HeaderContentType, "image/png")
		// Images are rewritten when a certificate is re-uploaded.
		c.Set(fiber.HeaderCacheControl, "no-cache")
		if info.Size > 0 {
			return c.SendStream(rc, int(info.Size))
		}
		return c.SendStream(rc)
	}
}
