// Package accesswindow вычисляет состояние окна доступа к телемедицинской сессии.
//
// Окно хранится в записи подписки тремя полями: время первого входа (может отсутствовать),
// фиксированная длительность и флаг окончательного истечения. Check — чистая функция
// от этих полей и текущего времени; сохранение изменений остаётся за вызывающим кодом.
package accesswindow

import "time"

// Result состояние окна на момент проверки.
type Result struct {
	// Allowed доступ к сессии разрешён.
	Allowed bool
	// FirstAccess вход ещё не выполнялся, отсчёт начнётся при первом входе.
	FirstAccess bool
	// Expired окно закрыто.
	Expired bool
	// ExpiredNow окно закрылось именно в этой проверке, флаг нужно сохранить.
	ExpiredNow bool
	// RemainingSeconds оставшееся время в целых секундах.
	RemainingSeconds int64
}

// Check проверяет окно доступа.
//
//   - выставленный флаг expired — доступ закрыт навсегда;
//   - startedAt == nil — доступ открыт на всю длительность;
//   - прошло больше duration — окно закрывается (ExpiredNow);
//   - иначе возвращается остаток в секундах.
//
// Неположительная длительность считается уже истёкшим окном.
func Check(now time.Time, startedAt *time.Time, duration time.Duration, expired bool) Result {
	if expired {
		return Result{Expired: true}
	}
	if duration <= 0 {
		return Result{Expired: true, ExpiredNow: true}
	}
	if startedAt == nil {
		return Result{
			Allowed:          true,
			FirstAccess:      true,
			RemainingSeconds: int64(duration / time.Second),
		}
	}

	elapsed := now.Sub(*startedAt)
	if elapsed < 0 {
		// часы сервера отстают от сохранённой отметки
		elapsed = 0
	}
	if elapsed > duration {
		return Result{Expired: true, ExpiredNow: true}
	}
	return Result{
		Allowed:          true,
		RemainingSeconds: int64((duration - elapsed) / time.Second),
	}
}

// ExpiresAt возвращает момент закрытия окна или nil, если отсчёт ещё не начат.
func ExpiresAt(startedAt *time.Time, duration time.Duration) *time.Time {
	if startedAt == nil {
		return nil
	}
	t := startedAt.Add(duration)
	return &t
}
