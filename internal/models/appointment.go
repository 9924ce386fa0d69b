package models

import "time"

// Статусы осмотра по записи на приём.
const (
	ExamPending    = "pending"
	ExamInProgress = "in_progress"
	ExamCompleted  = "completed"
	ExamCanceled   = "canceled"
)

// Appointment запись пациента на телемедицинский приём.
type Appointment struct {
	ID                string    `json:"id"`
	UserUID           string    `json:"user_uid"`
	Email             string    `json:"email"`
	SubscriptionID    string    `json:"subscription_id"`
	Treatment         string    `json:"treatment"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	ExternalBookingID string    `json:"external_booking_id"`
	MeetingURL        string    `json:"meeting_url,omitempty"`
	ExamStatus        string    `json:"exam_status"`
	ReminderSent      bool      `json:"reminder_sent"`
	CreatedAt         time.Time `json:"created_at"`
}

// DummyAppointment используется для приёма запроса на запись.
type DummyAppointment struct {
	SubscriptionID string    `json:"subscription_id" validate:"required"`
	Treatment      string    `json:"treatment" validate:"required,max=128"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	TimeZone       string    `json:"time_zone,omitempty"`
}

// JoinInfo данные для входа в сессию.
type JoinInfo struct {
	AppointmentID    string `json:"appointment_id"`
	MeetingURL       string `json:"meeting_url"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// DummyExamStatus запрос на смену статуса осмотра.
type DummyExamStatus struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed canceled"`
}
