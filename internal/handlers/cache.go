package handlers

import (
	stdErrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/flowoff/assistente/internal/cache"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/response"
	appValidator "github.com/flowoff/assistente/pkg/validator"
)

// CacheHandler exposes the cache facade to operators.
type CacheHandler struct {
	cache *cache.Cache
}

// NewCacheHandler constructs a CacheHandler.
func NewCacheHandler(c *cache.Cache) *CacheHandler {
	return &CacheHandler{cache: c}
}

type cacheEntryResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type putCacheRequest struct {
	Value      json.RawMessage `json:"value" validate:"required"`
	TTLSeconds int             `json:"ttl_seconds" validate:"omitempty,min=1"`
}

type expireCacheRequest struct {
	TTLSeconds int `json:"ttl_seconds" validate:"required,min=1"`
}

// Get handles GET /api/cache/:key.
func (h *CacheHandler) Get(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}

	var value json.RawMessage
	if err := h.cache.Get(requestContext(c), key, &value); err != nil {
		response.Error(c, cacheError(err))
		return
	}
	response.Success(c, http.StatusOK, cacheEntryResponse{Key: key, Value: value})
}

// Put handles PUT /api/cache/:key.
func (h *CacheHandler) Put(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}
	var req putCacheRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ttl := h.cache.DefaultTTL()
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if err := h.cache.Set(requestContext(c), key, req.Value, ttl); err != nil {
		response.Error(c, cacheError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "ttl_seconds": int64(ttl.Seconds())})
}

// Delete handles DELETE /api/cache/:key.
func (h *CacheHandler) Delete(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}
	if err := h.cache.Delete(requestContext(c), key); err != nil {
		response.Error(c, cacheError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Exists handles HEAD /api/cache/:key.
func (h *CacheHandler) Exists(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}
	found, err := h.cache.Exists(requestContext(c), key)
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

// Increment handles POST /api/cache/:key/increment.
func (h *CacheHandler) Increment(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}
	value, err := h.cache.Increment(requestContext(c), key)
	if err != nil {
		response.Error(c, cacheError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
}

// Expire handles POST /api/cache/:key/expire.
func (h *CacheHandler) Expire(c *gin.Context) {
	key, ok := cacheKeyParam(c)
	if !ok {
		return
	}
	var req expireCacheRequest
	if !bindAndValidate(c, &req) {
		return
	}
	updated, err := h.cache.Expire(requestContext(c), key, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		response.Error(c, cacheError(err))
		return
	}
	if !updated {
		response.Error(c, errors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key, "ttl_seconds": req.TTLSeconds})
}

// Clear handles DELETE /api/cache.
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.cache.Clear(requestContext(c)); err != nil {
		response.Error(c, cacheError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func cacheKeyParam(c *gin.Context) (string, bool) {
	key := c.Param("key")
	if err := appValidator.ValidateVar("key", key, "cachekey"); err != nil {
		response.Error(c, errors.NewBadRequest("key must be 1-512 printable characters without spaces"))
		return "", false
	}
	return key, true
}

func cacheError(err error) error {
	switch {
	case stdErrors.Is(err, cache.ErrMiss):
		return errors.ErrNotFound
	case stdErrors.Is(err, cache.ErrClearDisabled):
		return errors.New("CLEAR_DISABLED", "Clearing the cache is disabled", http.StatusForbidden)
	case stdErrors.Is(err, cache.ErrInvalidTTL):
		return errors.NewBadRequest(err.Error())
	default:
		return errors.ErrServiceUnavailable.WithInternal(err)
	}
}
