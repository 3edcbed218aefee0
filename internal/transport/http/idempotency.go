package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/domain"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// bodyRecorder дублирует ответ в буфер, чтобы его можно было сохранить и
// воспроизвести при повторе запроса с тем же ключом.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// withIdempotency обрабатывает заголовок Idempotency-Key для мутирующих
// запросов: первый запрос выполняется и его ответ сохраняется, повтор с тем же
// телом получает сохранённый ответ, повтор с другим телом — 422, повтор во
// время обработки — 409. Запрос без заголовка проходит как обычно.
func withIdempotency(repo domain.IdempotencyRepository, logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyKeyHeader)
		if repo == nil || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, fmt.Errorf("read request body: %w", err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashRequest(c.Request.Method, c.FullPath(), body)

		record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrIdempotencyHashMismatch):
				writeError(c, err)
			case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
				replayIdempotency(c, record)
			default:
				logger.WithError(err).WithField("idempotency_key", key).Error("failed to register idempotency key")
				writeError(c, err)
			}
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := c.Writer.Status()
		responseBody := recorder.buf.Bytes()
		if status >= http.StatusOK && status < http.StatusBadRequest {
			err = repo.MarkDone(key, responseBody, status)
		} else {
			err = repo.MarkFailed(key, responseBody, status)
		}
		if err != nil {
			logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
		}
	}
}

func replayIdempotency(c *gin.Context, record domain.IdempotencyRecord) {
	if record.Status == domain.IdempotencyStatusProcessing {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is being processed"})
		return
	}

	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	c.Data(status, "application/json", record.ResponseBody)
	c.Abort()
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
