package utils

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/gosimple/slug"
	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
)

var weekdays = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda-feira",
	time.Tuesday:   "Terça-feira",
	time.Wednesday: "Quarta-feira",
	time.Thursday:  "Quinta-feira",
	time.Friday:    "Sexta-feira",
	time.Saturday:  "Sábado",
}

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

// ToMinorUnits converts a price to cents, rounding half away from zero.
func ToMinorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ObjectKey builds the storage key, without extension, for a sale's artifacts.
func ObjectKey(title string, saleID string) string {
	s := slug.Make(title)
	if s == "" {
		s = "ticket"
	}
	return fmt.Sprintf("tickets/%s/%s", s, saleID)
}

// FormatPhoneNumber renders a Brazilian number in national format. Anything
// that does not parse is returned as given; a missing number is "N/A".
func FormatPhoneNumber(phone *string) string {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return "N/A"
	}
	num, err := phonenumbers.Parse(*phone, "BR")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return *phone
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

// FormatEventDate returns "DD/MM/YYYY" and "<Weekday> às HH:mm" in loc.
func FormatEventDate(t time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return local.Format("02/01/2006"), fmt.Sprintf("%s às %s", weekdays[local.Weekday()], local.Format("15:04"))
}

func FormatPrice(price decimal.Decimal) string {
	return "R$ " + price.StringFixed(2)
}
