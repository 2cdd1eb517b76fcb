package http

import (
	"github.com/gofiber/fiber/v2"

	"mail_server/core/domain"
	"mail_server/core/port/in"
	"mail_server/pkg/response"
)

// WatchTracker is told about watch registrations so the background
// renewer knows the current deadline. Nil disables tracking.
type WatchTracker interface {
	Track(reg *domain.WatchRegistration)
}

// EmailHandler exposes message retrieval, classification and watch
// management.
type EmailHandler struct {
	reader       in.MailReader
	analyzer     in.Analyzer
	tracker      WatchTracker
	defaultLimit int
	expenseQuery string
}

func NewEmailHandler(reader in.MailReader, analyzer in.Analyzer, tracker WatchTracker, defaultLimit int, expenseQuery string) *EmailHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &EmailHandler{
		reader:       reader,
		analyzer:     analyzer,
		tracker:      tracker,
		defaultLimit: defaultLimit,
		expenseQuery: expenseQuery,
	}
}

func (h *EmailHandler) Register(app fiber.Router) {
	emails := app.Group("/emails")
	emails.Get("/", h.List)
	emails.Get("/:id", h.Get)
	emails.Post("/:id/analyze", h.Analyze)

	app.Get("/expenses/latest", h.LatestExpense)

	watch := app.Group("/watch")
	watch.Post("/", h.RegisterWatch)
	watch.Post("/renew", h.RenewWatch)
	watch.Delete("/", h.StopWatch)
}

// List retrieves matching messages. Messages that fail to fetch or
// parse are reported in meta.failed_ids, not dropped silently.
func (h *EmailHandler) List(c *fiber.Ctx) error {
	query := c.Query("q")
	maxResults := int64(c.QueryInt("max_results", h.defaultLimit))

	batch, err := h.reader.GetEmails(c.Context(), query, maxResults)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.OKWithMeta(c, batch.Emails, &response.Meta{
		Total:     len(batch.Emails),
		FailedIDs: batch.FailedIDs,
	})
}

func (h *EmailHandler) Get(c *fiber.Ctx) error {
	email, err := h.reader.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return response.AppError(c, err)
	}
	if email == nil {
		return response.NotFound(c, "email not found")
	}
	return response.OK(c, email)
}

// Analyze fetches one message and runs the transaction classifier over
// its text.
func (h *EmailHandler) Analyze(c *fiber.Ctx) error {
	email, err := h.reader.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return response.AppError(c, err)
	}
	if email == nil {
		return response.NotFound(c, "email not found")
	}

	report, err := h.analyzer.Analyze(c.Context(), email)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.OK(c, fiber.Map{
		"email_id": email.ID,
		"report":   report,
	})
}

// LatestExpense fetches the newest message matching the configured
// expense query and classifies it in one step.
func (h *EmailHandler) LatestExpense(c *fiber.Ctx) error {
	query := c.Query("q", h.expenseQuery)

	batch, err := h.reader.GetEmails(c.Context(), query, 1)
	if err != nil {
		return response.AppError(c, err)
	}
	if len(batch.Emails) == 0 {
		return response.NotFound(c, "no matching email")
	}

	email := batch.Emails[0]
	report, err := h.analyzer.Analyze(c.Context(), email)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.OK(c, fiber.Map{
		"email_id": email.ID,
		"subject":  email.Subject,
		"date":     email.Date,
		"report":   report,
	})
}

func (h *EmailHandler) RegisterWatch(c *fiber.Ctx) error {
	reg, err := h.reader.RegisterWatch(c.Context())
	if err != nil {
		return response.AppError(c, err)
	}
	if h.tracker != nil {
		h.tracker.Track(reg)
	}
	return response.Created(c, reg)
}

func (h *EmailHandler) RenewWatch(c *fiber.Ctx) error {
	reg, err := h.reader.RenewWatch(c.Context())
	if err != nil {
		return response.AppError(c, err)
	}
	if h.tracker != nil {
		h.tracker.Track(reg)
	}
	return response.OK(c, reg)
}

func (h *EmailHandler) StopWatch(c *fiber.Ctx) error {
	if err := h.reader.StopWatch(c.Context()); err != nil {
		return response.AppError(c, err)
	}
	return response.NoContent(c)
}
