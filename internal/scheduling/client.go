// Package scheduling клиент внешнего API записи на телемедицинский приём.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
)

// Attendee пациент, на которого оформляется запись.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// BookingRequest запрос на бронирование слота.
type BookingRequest struct {
	EventTypeID int               `json:"eventTypeId"`
	Start       time.Time         `json:"start"`
	Attendee    Attendee          `json:"attendee"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Booking подтверждённая бронь.
type Booking struct {
	UID        string    `json:"uid"`
	Status     string    `json:"status"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	MeetingURL string    `json:"meetingUrl"`
}

type bookingResponse struct {
	Status string  `json:"status"`
	Data   Booking `json:"data"`
}

// Client обращается к API записи.
type Client struct {
	apiURL      string
	apiKey      string
	eventTypeID int
	httpClient  *http.Client
}

// NewClient создаёт клиента API записи.
func NewClient(cfg config.Scheduling) *Client {
	return &Client{
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		apiKey:      cfg.APIKey,
		eventTypeID: cfg.EventTypeID,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateBooking бронирует слот. Если EventTypeID не задан, используется значение из конфига.
func (c *Client) CreateBooking(ctx context.Context, reqParams BookingRequest) (*Booking, error) {
	const op = "scheduling.CreateBooking"

	if reqParams.EventTypeID == 0 {
		reqParams.EventTypeID = c.eventTypeID
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqParams); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/bookings", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, body)
	}

	var booking bookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if booking.Data.UID == "" {
		return nil, fmt.Errorf("%s: empty booking uid in response", op)
	}
	return &booking.Data, nil
}
