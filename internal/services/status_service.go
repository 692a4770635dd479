package services

import (
	"fmt"
	"log"
	"time"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/redis"
	"drawing_tracker/internal/repository"
)

const dateKeyLayout = "2006-01-02"

// Project buckets relationships by their date-required day. The result has
// exactly one bucket per day of [from, to], all-zero buckets included; the
// calendar view indexes the window without checking for missing keys.
//
// Pure function: same input, same output, no store access.
func Project(relationships []models.Relationship, from, to time.Time) map[string]models.DailyStatusBucket {
	buckets := make(map[string]models.DailyStatusBucket)
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateKeyLayout)
		buckets[key] = models.DailyStatusBucket{Date: key}
	}

	for _, rel := range relationships {
		key := dateOnly(rel.DateRequired).Format(dateKeyLayout)
		bucket, ok := buckets[key]
		if !ok {
			continue // outside the window
		}

		switch {
		case rel.Processed:
			bucket.Processed++
		case rel.PDFPath != nil:
			bucket.Ready++
		default:
			bucket.Missing++
		}
		buckets[key] = bucket
	}
	return buckets
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type StatusService interface {
	Calendar(from, to time.Time) ([]models.DailyStatusBucket, error)
}

type statusService struct {
	relationshipRepo repository.RelationshipRepository
	redis            *redis.Client
	cacheTTL         time.Duration
	logger           *log.Logger
}

func NewStatusService(relationshipRepo repository.RelationshipRepository, redisClient *redis.Client, cacheTTL time.Duration, logger *log.Logger) StatusService {
	return &statusService{
		relationshipRepo: relationshipRepo,
		redis:            redisClient,
		cacheTTL:         cacheTTL,
		logger:           logger,
	}
}

// Calendar returns the dense day-by-day buckets for the window, oldest
// first. Cached days are served from Redis; any miss recomputes the whole
// window from the store and refreshes the cache. The cache only ever saves a
// recomputation, so a stale TTL expiry costs nothing but a store query.
func (s *statusService) Calendar(from, to time.Time) ([]models.DailyStatusBucket, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("calendar window end %s precedes start %s", to.Format(dateKeyLayout), from.Format(dateKeyLayout))
	}

	if cached, ok := s.fromCache(from, to); ok {
		return cached, nil
	}

	relationships, err := s.relationshipRepo.GetByDateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships for calendar: %w", err)
	}

	buckets := Project(relationships, from, to)

	result := make([]models.DailyStatusBucket, 0, len(buckets))
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		bucket := buckets[day.Format(dateKeyLayout)]
		result = append(result, bucket)
		if s.redis != nil {
			if err := s.redis.SetDayBucket(bucket.Date, &bucket, s.cacheTTL); err != nil {
				s.logger.Printf("failed to cache bucket %s: %v", bucket.Date, err)
			}
		}
	}
	return result, nil
}

func (s *statusService) fromCache(from, to time.Time) ([]models.DailyStatusBucket, bool) {
	if s.redis == nil {
		return nil, false
	}

	var result []models.DailyStatusBucket
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		bucket, err := s.redis.GetDayBucket(day.Format(dateKeyLayout))
		if err != nil {
			return nil, false
		}
		result = append(result, *bucket)
	}
	return result, true
}
