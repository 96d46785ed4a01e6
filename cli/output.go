package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"concertbooking/booking"
	"concertbooking/entity"
	"concertbooking/expiry"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the booking service refused or could not be reached
	ExitCommandError = 2 // bad flags, arguments or local setup
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// bookingFailure turns an error from the booking controller into the message
// a person sees. Invalid requests are the caller's fault, everything else is
// a failed operation.
func bookingFailure(err error) *ExitError {
	code := ExitFailure
	if booking.KindOf(err) == booking.KindInvalidRequest {
		code = ExitCommandError
	}
	return &ExitError{Code: code, Message: booking.UserMessage(err), Err: err}
}

// Message is what gets printed for err on the terminal. Booking failures
// only show their user-facing text.
func Message(err error) string {
	var bErr *booking.Error
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if errors.As(exitErr.Err, &bErr) {
			return exitErr.Message
		}
		return exitErr.Error()
	}
	if errors.As(err, &bErr) {
		return booking.UserMessage(err)
	}
	return err.Error()
}

type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Printer writes command results as text or as JSON.
type Printer struct {
	Format string
	Writer io.Writer
}

func (p Printer) json() bool {
	return p.Format == "json"
}

// Result prints data as a JSON response, or calls text to render it.
func (p Printer) Result(data any, text func(w io.Writer)) error {
	if p.json() {
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	}

	text(p.Writer)
	return nil
}

func writeConcertLine(w io.Writer, c entity.Concert) {
	low, high := c.PriceRange()
	availability := "available"
	if !c.HasAvailableTickets() {
		availability = "sold out"
	}
	fmt.Fprintf(w, "%s  %s\n", c.ID, c.Name)
	fmt.Fprintf(w, "    %s, %s\n", c.Venue, FormatDateTime(c.EventDate))
	fmt.Fprintf(w, "    %s (%s)\n", FormatPriceRange(low, high), availability)
}

func writeReservation(w io.Writer, r entity.Reservation, clock expiry.Clock) {
	fmt.Fprintf(w, "Booking %s (%s)\n", r.Reference, r.Status)
	if r.ConcertName != "" {
		fmt.Fprintf(w, "%s, %s, %s\n", r.ConcertName, r.ConcertVenue, FormatDateTime(r.EventDate))
	}
	for _, item := range r.Items {
		fmt.Fprintf(w, "  %d x %s @ %s = %s\n",
			item.Quantity,
			FormatTierName(item.TierType),
			FormatCurrency(item.UnitPrice),
			FormatCurrency(item.Subtotal),
		)
	}
	fmt.Fprintf(w, "Total: %s (%s)\n", FormatCurrency(r.TotalAmount), FormatTicketCount(r.TicketCount()))
	if r.Status == entity.StatusPending {
		if deadline, ok := expiry.Deadline(r); ok {
			fmt.Fprintf(w, "Expires in: %s\n", clock.Format(deadline))
		}
	}
	fmt.Fprintf(w, "id: %s\n", r.ID)
}

// statusNote explains a terminal status in one line.
func statusNote(r entity.Reservation) string {
	switch r.Status {
	case entity.StatusConfirmed:
		return "Payment received. Enjoy the show!"
	case entity.StatusCancelled:
		return "Payment failed. The tickets have been released."
	case entity.StatusExpired:
		return "The reservation expired before payment. The tickets have been released."
	}
	return ""
}

func countdownLine(r entity.Reservation, t expiry.Tick) string {
	if t.Passed {
		return fmt.Sprintf("%s: %s, waiting for the booking service", r.Reference, strings.ToLower(expiry.Expired))
	}
	return fmt.Sprintf("%s: pay within %s", r.Reference, t.Remaining)
}
