package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/repository"
	"drawing_tracker/internal/services"
)

// recordingCache stands in for the redis client and remembers which day
// buckets the handlers dropped.
type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) InvalidateDayBucket(date string) error {
	c.invalidated = append(c.invalidated, date)
	return nil
}

func (c *recordingCache) GetScanReport(batchID string, dest interface{}) error {
	return fmt.Errorf("no report for batch %s", batchID)
}

func setupTestRouter(t *testing.T) (*gin.Engine, repository.RelationshipRepository, *recordingCache) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tracker_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Relationship{}, &models.PDFChangeRecord{}, &models.User{}))

	quiet := log.New(io.Discard, "", 0)
	relationshipRepo := repository.NewRelationshipRepository(db, quiet)
	userRepo := repository.NewUserRepository(db)
	userService := services.NewUserService(userRepo)
	statusService := services.NewStatusService(relationshipRepo, nil, time.Minute, quiet)

	admin := &models.User{Username: "admin", Role: string(models.Admin), IsActive: true}
	require.NoError(t, userService.CreateUser(admin, "changeme"))

	cache := &recordingCache{}
	handler := NewAPIHandler(relationshipRepo, nil, statusService, userService, cache)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"))
	return router, relationshipRepo, cache
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRelationshipByOrder(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	_, err := repo.Create(models.OrderRecord{
		OrderNumber:  "4033090",
		Customer:     "Drake Homes",
		DateRequired: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}, nil, models.ReasonAutoMatch)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/orders/4033090/relationship", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rel models.Relationship
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rel))
	assert.Equal(t, "Drake Homes", rel.Customer)

	w = doJSON(router, http.MethodGet, "/api/orders/9999999/relationship", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManualAttachEndpoint(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	rel, err := repo.Create(models.OrderRecord{OrderNumber: "4033090"}, nil, models.ReasonAutoMatch)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/api/relationships/%d/pdf", rel.ID),
		gin.H{"path": "/drawings/RH-913-DRAKE-PROD.pdf"})
	require.Equal(t, http.StatusOK, w.Code)

	history, err := repo.History(rel.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(models.ReasonManualAttachment), history[0].Reason)

	w = doJSON(router, http.MethodPost, "/api/relationships/99999/pdf", gin.H{"path": "/drawings/x.pdf"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnmarkProcessedRequiresAdminCredentials(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	rel, err := repo.Create(models.OrderRecord{OrderNumber: "4033090"}, nil, models.ReasonAutoMatch)
	require.NoError(t, err)
	_, err = repo.MarkProcessed(rel.ID)
	require.NoError(t, err)

	url := fmt.Sprintf("/api/relationships/%d/processed", rel.ID)

	w := doJSON(router, http.MethodDelete, url, gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodDelete, url, gin.H{"username": "admin", "password": "changeme"})
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := repo.GetByID(rel.ID)
	require.NoError(t, err)
	assert.False(t, updated.Processed)
}

// Every manual mutation must drop the cached bucket for the relationship's
// required date, otherwise the calendar keeps serving the pre-mutation counts
// until the cache TTL runs out.
func TestManualMutationsInvalidateDayBucket(t *testing.T) {
	router, repo, cache := setupTestRouter(t)

	rel, err := repo.Create(models.OrderRecord{
		OrderNumber:  "4033090",
		DateRequired: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}, nil, models.ReasonAutoMatch)
	require.NoError(t, err)

	base := fmt.Sprintf("/api/relationships/%d", rel.ID)

	w := doJSON(router, http.MethodPost, base+"/pdf", gin.H{"path": "/drawings/v1.pdf"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, base+"/processed", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, base+"/processed", gin.H{"username": "admin", "password": "changeme"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, base+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, base+"/archive", gin.H{"reason": "order cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, cache.invalidated, 5)
	for _, date := range cache.invalidated {
		assert.Equal(t, "2024-03-14", date)
	}
}

func TestCalendarEndpointReturnsDenseWindow(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	_, err := repo.Create(models.OrderRecord{
		OrderNumber:  "4033090",
		DateRequired: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}, nil, models.ReasonAutoMatch)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/calendar?start=2024-03-12&end=2024-03-16", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var buckets []models.DailyStatusBucket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &buckets))
	require.Len(t, buckets, 5)
	assert.Equal(t, "2024-03-12", buckets[0].Date)
	assert.Equal(t, 1, buckets[2].Missing)

	w = doJSON(router, http.MethodGet, "/api/calendar?start=bad&end=2024-03-16", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
