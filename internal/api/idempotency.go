package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
)

const IdempotencyHeader = "Idempotency-Key"

// storedResponse is what Idempotency keeps in Redis. Status 0 marks a request
// still being served.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

func encodeStored(status int, body []byte) string {
	raw, _ := json.Marshal(storedResponse{Status: status, Body: body})
	return string(raw)
}

func idempotencyKey(userID, method, path, key string) string {
	return "idem:" + userID + ":" + method + ":" + path + ":" + key
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a write repeated with the same
// Idempotency-Key. Server errors are not stored so the client can retry.
// Without Redis, or when Redis fails, requests are served normally.
func Idempotency(rdb *redis.Client, ttl time.Duration, m *metrics.Manager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(IdempotencyHeader)
		if rdb == nil || header == "" || isReadOnly(c.Request.Method) {
			c.Next()
			return
		}
		uid, err := getUserIDFromContext(c)
		if err != nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := idempotencyKey(uid, c.Request.Method, c.Request.URL.Path, header)

		// 1. Replay a finished response
		raw, err := rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			var stored storedResponse
			if jsonErr := json.Unmarshal([]byte(raw), &stored); jsonErr != nil {
				log.Warn("dropping unreadable idempotency record", "key", key, "error", jsonErr)
				rdb.Del(ctx, key)
				break
			}
			if stored.Status == 0 {
				abortWithError(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
				return
			}
			m.CounterIdempotentReplays.Inc()
			c.Header("Idempotent-Replayed", "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		case err != redis.Nil:
			log.Warn("idempotency lookup failed", "key", key, "error", err)
			c.Next()
			return
		}

		// 2. Claim the key
		claimed, err := rdb.SetNX(ctx, key, encodeStored(0, nil), ttl).Result()
		if err != nil {
			log.Warn("idempotency claim failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !claimed {
			abortWithError(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
			return
		}

		// 3. Serve and store. A handler that panics must not leave the claim behind.
		served := false
		defer func() {
			if !served {
				rdb.Del(ctx, key)
			}
		}()
		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()
		served = true

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			rdb.Del(ctx, key)
			return
		}
		if err := rdb.Set(ctx, key, encodeStored(status, rec.body.Bytes()), ttl).Err(); err != nil {
			log.Warn("idempotency store failed", "key", key, "error", err)
		}
	}
}
