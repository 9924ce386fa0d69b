// Package period содержит арифметику периодов оплаты тарифов.
package period

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// Months возвращает длину периода оплаты в месяцах.
func Months(billingPeriod string, intervalCount int) (int, error) {
	if intervalCount <= 0 {
		intervalCount = 1
	}
	switch billingPeriod {
	case models.BillingPeriodMonth:
		return intervalCount, nil
	case models.BillingPeriodQuarter:
		return 3 * intervalCount, nil
	case models.BillingPeriodYear:
		return 12 * intervalCount, nil
	default:
		return 0, fmt.Errorf("unknown billing period %q", billingPeriod)
	}
}

// End возвращает дату окончания периода, начавшегося в start.
// Если в конечном месяце нет нужного дня, берётся последний день месяца
// (31 января + 1 месяц = 28/29 февраля), а не перенос в март, как у time.AddDate.
func End(start time.Time, billingPeriod string, intervalCount int) (time.Time, error) {
	months, err := Months(billingPeriod, intervalCount)
	if err != nil {
		return time.Time{}, err
	}

	y, m, d := start.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	lastDay := target.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	h, mi, s := start.Clock()
	return time.Date(target.Year(), target.Month(), d, h, mi, s, start.Nanosecond(), start.Location()), nil
}

// ProviderInterval переводит период оплаты в интервал провайдера (month/year)
// и количество интервалов.
func ProviderInterval(billingPeriod string, intervalCount int) (string, int, error) {
	if intervalCount <= 0 {
		intervalCount = 1
	}
	switch billingPeriod {
	case models.BillingPeriodMonth:
		return "month", intervalCount, nil
	case models.BillingPeriodQuarter:
		return "month", 3 * intervalCount, nil
	case models.BillingPeriodYear:
		return "year", intervalCount, nil
	default:
		return "", 0, fmt.Errorf("unknown billing period %q", billingPeriod)
	}
}
