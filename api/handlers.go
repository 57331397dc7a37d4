package api

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/aidm5e/aidm/pkg/routing"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CategorySummary is one row in the category listing.
type CategorySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemorySlots int    `json:"memory_slots"`
	Channels    int    `json:"channels"`
}

// CategoryDetail is the full routing state of one category.
type CategoryDetail struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	DefaultMemory string            `json:"default_memory"`
	MemoryThreads map[string]string `json:"memory_threads"`
	Channels      []ChannelDetail   `json:"channels"`
}

// ChannelDetail is one channel's routing record with its resolved
// conversation id.
type ChannelDetail struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	MemoryName string         `json:"memory_name,omitempty"`
	AlwaysOn   bool           `json:"always_on"`
	Threads    []ThreadDetail `json:"threads,omitempty"`
}

// ThreadDetail is one thread's routing record.
type ThreadDetail struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MemoryName string `json:"memory_name,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleRouteStats returns aggregate counts over the routing document.
func (s *Server) handleRouteStats(c *fiber.Ctx) error {
	return c.JSON(s.store.Load().Stats())
}

// handleListCategories returns a summary row per category, sorted by id.
func (s *Server) handleListCategories(c *fiber.Ctx) error {
	doc := s.store.Load()

	categories := make([]CategorySummary, 0, len(doc))
	for id, cat := range doc {
		categories = append(categories, CategorySummary{
			ID:          id,
			Name:        cat.Name,
			MemorySlots: len(cat.MemoryThreads),
			Channels:    len(cat.Channels),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})

	return c.JSON(map[string]any{
		"count":      len(categories),
		"categories": categories,
	})
}

// handleGetCategory returns the full routing state of one category.
func (s *Server) handleGetCategory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	doc := s.store.Load()
	cat, ok := doc[routing.NormalizeID(id)]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "category not found"})
	}

	detail := CategoryDetail{
		ID:            id,
		Name:          cat.Name,
		DefaultMemory: cat.DefaultMemory,
		MemoryThreads: cat.MemoryThreads,
		Channels:      make([]ChannelDetail, 0, len(cat.Channels)),
	}

	for chID, ch := range cat.Channels {
		chDetail := ChannelDetail{
			ID:         chID,
			Name:       ch.Name,
			MemoryName: ch.MemoryName,
			AlwaysOn:   ch.AlwaysOn,
		}
		for thID, th := range ch.Threads {
			chDetail.Threads = append(chDetail.Threads, ThreadDetail{
				ID:         thID,
				Name:       th.Name,
				MemoryName: th.MemoryName,
			})
		}
		sort.Slice(chDetail.Threads, func(i, j int) bool {
			return chDetail.Threads[i].ID < chDetail.Threads[j].ID
		})
		detail.Channels = append(detail.Channels, chDetail)
	}
	sort.Slice(detail.Channels, func(i, j int) bool {
		return detail.Channels[i].ID < detail.Channels[j].ID
	})

	return c.JSON(detail)
}

// handleTranscriptStats returns aggregate counts over the transcript log.
func (s *Server) handleTranscriptStats(c *fiber.Ctx) error {
	n, err := s.transcripts.Count(c.Context())
	if err != nil {
		s.logger.Error("counting transcripts", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count transcripts"})
	}

	return c.JSON(map[string]any{
		"exchanges": n,
	})
}
