// Package notify turns booking events into guest emails and SMS and
// housekeeping tasks.  Rendering is pure; delivery goes through SendGrid
// and Twilio behind small interfaces.
package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/iliyamo/shortlet-booking/internal/queue"
)

// Message is one rendered notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
	SMS     string
}

// FormatAmount renders minor units as "NGN 2,250.00".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := strconv.FormatInt(minor/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s%s %s.%02d", sign, currency, b.String(), minor%100)
}

func stay(ev queue.BookingEvent) string {
	return fmt.Sprintf("%s, %s to %s", ev.PropertyName, ev.CheckIn, ev.CheckOut)
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Hello,"
	}
	return "Hello " + name + ","
}

// paragraphs builds the HTML body from plain lines.
func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(l))
		b.WriteString("</p>")
	}
	return b.String()
}

func render(subject, sms string, lines ...string) Message {
	return Message{
		Subject: subject,
		Text:    strings.Join(lines, "\n\n"),
		HTML:    paragraphs(lines...),
		SMS:     sms,
	}
}

// BookingConfirmed renders the confirmation sent to the guest.
func BookingConfirmed(ev queue.BookingConfirmedEvent, currency string) Message {
	lines := []string{
		greeting(ev.GuestName),
		fmt.Sprintf("Your booking %s is confirmed: %s for %d guest(s).", ev.BookingNumber, stay(ev.BookingEvent), ev.Guests),
		"Total: " + FormatAmount(ev.TotalAmount, currency),
	}
	if ev.ArrivalTime != "" {
		lines = append(lines, "Expected arrival: "+ev.ArrivalTime)
	}
	return render(
		"Booking confirmed: "+ev.BookingNumber,
		fmt.Sprintf("Booking %s confirmed. %s.", ev.BookingNumber, stay(ev.BookingEvent)),
		lines...,
	)
}

// PaymentReceived renders the receipt sent to the guest.
func PaymentReceived(ev queue.PaymentReceivedEvent, currency string) Message {
	amount := FormatAmount(ev.Amount, currency)
	lines := []string{
		greeting(ev.GuestName),
		fmt.Sprintf("We received %s for booking %s (%s).", amount, ev.BookingNumber, stay(ev.BookingEvent)),
		"Payment reference: " + ev.Reference,
	}
	if ev.PaymentStatus == "partial" {
		lines = append(lines, "A balance remains on this booking; the total is "+FormatAmount(ev.TotalAmount, currency)+".")
	}
	return render(
		"Payment received: "+ev.BookingNumber,
		fmt.Sprintf("Payment of %s received for booking %s.", amount, ev.BookingNumber),
		lines...,
	)
}

// BookingCancelled renders the cancellation notice, including the refund.
func BookingCancelled(ev queue.BookingCancelledEvent, currency string) Message {
	lines := []string{
		greeting(ev.GuestName),
		fmt.Sprintf("Your booking %s (%s) has been cancelled.", ev.BookingNumber, stay(ev.BookingEvent)),
	}
	if ev.Reason != "" {
		lines = append(lines, "Reason: "+ev.Reason)
	}
	sms := fmt.Sprintf("Booking %s cancelled.", ev.BookingNumber)
	if ev.RefundAmount > 0 {
		refund := FormatAmount(ev.RefundAmount, currency)
		lines = append(lines, fmt.Sprintf("A %s refund of %s is on its way to your original payment method.", ev.RefundTier, refund))
		sms += " Refund: " + refund + "."
	} else if ev.Message != "" {
		lines = append(lines, ev.Message)
	}
	return render("Booking cancelled: "+ev.BookingNumber, sms, lines...)
}

// CheckoutTask renders the cleaning task for housekeeping.
func CheckoutTask(ev queue.CheckoutEvent) Message {
	return render(
		"Turnover needed: "+ev.PropertyName,
		"",
		fmt.Sprintf("Guests of booking %s have checked out of %s.", ev.BookingNumber, ev.PropertyName),
		fmt.Sprintf("Stay: %s to %s, %d guest(s).", ev.CheckIn, ev.CheckOut, ev.Guests),
		"Please schedule cleaning and inspection.",
	)
}
