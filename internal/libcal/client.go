package libcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oliveagle/jsonpath"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

const (
	gridPath  = "/spaces/availability/grid"
	addPath   = "/spaces/availability/booking/add"
	timesPath = "/ajax/space/times"
	bookPath  = "/ajax/space/book"

	slotTimeLayout   = "2006-01-02 15:04:05"
	minuteTimeLayout = "2006-01-02 15:04"

	// The booking form is rendered for "space" bookings with this method code
	bookingMethod = "11"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36"

	maxResponseBytes = 2 << 20
)

// sessionPattern extracts the hidden form session id from the HTML fragment
// returned by the times endpoint.
var sessionPattern = regexp.MustCompile(`id="session" name="session" value="(\d+)"`)

// Options configures a Client
type Options struct {
	BaseURL    string
	LID        int
	GID        int
	QuestionID string
	Answer     string
	Timeout    time.Duration
}

// Client talks to the external room-scheduling platform. It owns all
// knowledge of that platform's endpoints and request/response shapes. Calls
// carry a bounded timeout and are never retried internally; retry policy
// belongs to the check runner, where each retry is a fresh scheduler-driven
// invocation.
type Client struct {
	hc         *http.Client
	baseURL    string
	lid        string
	gid        string
	questionID string
	answer     string
	timeout    time.Duration
}

// NewClient creates an upstream client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		lid:        strconv.Itoa(opts.LID),
		gid:        strconv.Itoa(opts.GID),
		questionID: opts.QuestionID,
		answer:     opts.Answer,
		timeout:    timeout,
	}
}

// FetchAvailability retrieves the availability grid for one calendar date
// and maps it into per-room, time-ordered slot sequences. Returns
// ErrUpstreamUnreachable on network failures and *FormatError when the
// response no longer matches the expected shape.
func (c *Client) FetchAvailability(ctx context.Context, date string) (model.Availability, error) {
	day, err := time.ParseInLocation(model.DateFormat, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	nextDay := day.AddDate(0, 0, 1).Format(model.DateFormat)

	form := url.Values{
		"lid":       {c.lid},
		"gid":       {c.gid},
		"eid":       {"-1"},
		"seat":      {"0"},
		"seatId":    {"0"},
		"zone":      {"0"},
		"start":     {date},
		"end":       {nextDay},
		"pageIndex": {"0"},
		"pageSize":  {"18"},
	}

	body, status, err := c.postForm(ctx, gridPath, form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: availability grid returned status %d", ErrUpstreamUnreachable, status)
	}

	// Shape guard before the typed decode: the upstream is undocumented, so
	// a missing slots array means the schema drifted, not that nothing is
	// available.
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, newFormatError("availability response is not JSON", body)
	}
	if _, err := jsonpath.JsonPathLookup(doc, "$.slots"); err != nil {
		return nil, newFormatError("availability response has no slots array", body)
	}

	var grid gridResponse
	if err := json.Unmarshal(body, &grid); err != nil {
		return nil, newFormatError("availability slots have unexpected shape", body)
	}

	availability := make(model.Availability)
	for _, s := range grid.Slots {
		start, err := time.ParseInLocation(slotTimeLayout, s.Start, time.Local)
		if err != nil {
			return nil, newFormatError(fmt.Sprintf("slot start %q is not a timestamp", s.Start), body)
		}
		end, err := time.ParseInLocation(slotTimeLayout, s.End, time.Local)
		if err != nil {
			return nil, newFormatError(fmt.Sprintf("slot end %q is not a timestamp", s.End), body)
		}

		// A className marks the slot as booked or blocked; a slot missing
		// its checksum or room id cannot be booked either way.
		available := s.ClassName == "" && s.Checksum != "" && s.ItemID != 0

		availability[s.ItemID] = append(availability[s.ItemID], model.AvailabilitySlot{
			RoomID:      s.ItemID,
			Start:       start,
			End:         end,
			Checksum:    s.Checksum,
			IsAvailable: available,
		})
	}

	for _, slots := range availability {
		sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	}

	return availability, nil
}

// SubmitBooking executes the upstream's multi-step booking sequence as a
// single logical operation: acquire a provisional hold, extend it for a
// second hour if needed, resolve the form session, then confirm with the
// contact details. Any step failure surfaces as a rejection, a format
// error, or an unreachable error — never as a silently abandoned hold that
// the caller has to reason about.
func (c *Client) SubmitBooking(ctx context.Context, req BookingRequest) (BookingOutcome, error) {
	if n := len(req.Slots); n < 1 || n > 2 {
		return BookingOutcome{}, fmt.Errorf("booking requires 1 or 2 slots, got %d", n)
	}

	pending, outcome, err := c.acquireHold(ctx, req)
	if err != nil || outcome != nil {
		return deref(outcome), err
	}

	if len(req.Slots) > 1 {
		pending, outcome, err = c.extendHold(ctx, req, pending)
		if err != nil || outcome != nil {
			return deref(outcome), err
		}
	}

	session, err := c.resolveSession(ctx, pending)
	if err != nil {
		return BookingOutcome{}, err
	}

	return c.confirm(ctx, req, pending, session)
}

// acquireHold performs the booking/add step for the first slot. A non-nil
// outcome means the sequence terminated here (hold refused).
func (c *Client) acquireHold(ctx context.Context, req BookingRequest) (pendingBooking, *BookingOutcome, error) {
	first := req.Slots[0]
	form := url.Values{
		"add[eid]":      {strconv.Itoa(req.RoomID)},
		"add[gid]":      {c.gid},
		"add[lid]":      {c.lid},
		"add[start]":    {first.Start.Format(minuteTimeLayout)},
		"add[end]":      {first.End.Format(minuteTimeLayout)},
		"add[checksum]": {first.Checksum},
		"lid":           {c.lid},
		"gid":           {c.gid},
		"start":         {req.Date},
		"end":           {req.Date},
	}

	bookings, outcome, err := c.holdRequest(ctx, form, "provisional hold")
	if err != nil || outcome != nil {
		return nil, outcome, err
	}
	return bookings[0], nil, nil
}

// extendHold stretches the provisional hold to cover the second slot using
// the option checksum issued with the hold.
func (c *Client) extendHold(ctx context.Context, req BookingRequest, pending pendingBooking) (pendingBooking, *BookingOutcome, error) {
	id, ok := pending.stringField("id")
	if !ok {
		return nil, nil, newFormatError("provisional hold has no id", nil)
	}
	checksum, ok := pending.stringField("checksum")
	if !ok {
		return nil, nil, newFormatError("provisional hold has no checksum", nil)
	}
	optChecksum, ok := pending.optionChecksum(1)
	if !ok {
		// The upstream withholds the extension checksum when the following
		// hour is no longer free — a normal race loss.
		return nil, &BookingOutcome{
			Kind:      OutcomeRejected,
			Reason:    "hold cannot be extended to the second hour",
			SlotTaken: true,
		}, nil
	}

	first, second := req.Slots[0], req.Slots[1]
	form := url.Values{
		"update[id]":            {id},
		"update[checksum]":      {optChecksum},
		"update[end]":           {second.End.Format(slotTimeLayout)},
		"lid":                   {c.lid},
		"gid":                   {c.gid},
		"start":                 {req.Date},
		"end":                   {req.Date},
		"bookings[0][id]":       {id},
		"bookings[0][eid]":      {strconv.Itoa(req.RoomID)},
		"bookings[0][seat_id]":  {"0"},
		"bookings[0][gid]":      {c.gid},
		"bookings[0][lid]":      {c.lid},
		"bookings[0][start]":    {first.Start.Format(minuteTimeLayout)},
		"bookings[0][end]":      {first.End.Format(minuteTimeLayout)},
		"bookings[0][checksum]": {checksum},
	}

	bookings, outcome, err := c.holdRequest(ctx, form, "hold extension")
	if err != nil || outcome != nil {
		return nil, outcome, err
	}
	return bookings[0], nil, nil
}

// holdRequest posts to the booking/add endpoint and interprets the shared
// response shape of the hold and extension steps.
func (c *Client) holdRequest(ctx context.Context, form url.Values, step string) ([]pendingBooking, *BookingOutcome, error) {
	body, status, err := c.postForm(ctx, addPath, form)
	if err != nil {
		return nil, nil, err
	}
	if status >= http.StatusInternalServerError {
		return nil, nil, fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnreachable, step, status)
	}

	var resp struct {
		Bookings []pendingBooking `json:"bookings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, newFormatError(step+" response is not JSON", body)
	}
	if status != http.StatusOK || len(resp.Bookings) == 0 {
		// The upstream refuses the hold when the checksum went stale or the
		// slot was claimed between fetch and add.
		return nil, &BookingOutcome{
			Kind:      OutcomeRejected,
			Reason:    step + " refused by upstream",
			SlotTaken: true,
		}, nil
	}
	return resp.Bookings, nil, nil
}

// resolveSession replays the pending hold against the times endpoint and
// scrapes the hidden session id out of the returned booking-form HTML.
func (c *Client) resolveSession(ctx context.Context, pending pendingBooking) (string, error) {
	form := url.Values{"method": {bookingMethod}}
	for key, val := range pending {
		form.Set(fmt.Sprintf("bookings[0][%s]", key), formValue(val))
	}

	body, status, err := c.postForm(ctx, timesPath, form)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: booking form returned status %d", ErrUpstreamUnreachable, status)
	}

	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newFormatError("booking form response is not JSON", body)
	}
	match := sessionPattern.FindStringSubmatch(resp.HTML)
	if match == nil {
		return "", newFormatError("booking form HTML carries no session id", body)
	}
	return match[1], nil
}

// confirm submits the final booking with contact details
func (c *Client) confirm(ctx context.Context, req BookingRequest, pending pendingBooking, session string) (BookingOutcome, error) {
	checksum, ok := pending.stringField("checksum")
	if !ok {
		return BookingOutcome{}, newFormatError("pending hold has no checksum", nil)
	}
	eid, ok := pending.stringField("eid")
	if !ok {
		eid = strconv.Itoa(req.RoomID)
	}

	first := req.Slots[0]
	last := req.Slots[len(req.Slots)-1]
	bookingsJSON, err := json.Marshal([]map[string]any{{
		"id":       1,
		"eid":      eid,
		"seat_id":  0,
		"gid":      c.gid,
		"lid":      c.lid,
		"start":    first.Start.Format(minuteTimeLayout),
		"end":      last.End.Format(minuteTimeLayout),
		"checksum": checksum,
	}})
	if err != nil {
		return BookingOutcome{}, fmt.Errorf("marshal bookings payload: %w", err)
	}

	form := url.Values{
		"session":     {session},
		"fname":       {req.FirstName},
		"lname":       {req.LastName},
		"email":       {req.Email},
		c.questionID:  {c.answer},
		"bookings":    {string(bookingsJSON)},
		"returnUrl":   {fmt.Sprintf("/spaces?lid=%s&gid=%s", c.lid, c.gid)},
		"pickupHolds": {""},
		"method":      {bookingMethod},
	}

	body, status, err := c.postForm(ctx, bookPath, form)
	if err != nil {
		return BookingOutcome{}, err
	}
	if status >= http.StatusInternalServerError {
		return BookingOutcome{}, fmt.Errorf("%w: final booking returned status %d", ErrUpstreamUnreachable, status)
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return BookingOutcome{}, newFormatError("final booking response is not JSON", body)
	}

	if bookID, ok := resp["bookId"]; ok && status == http.StatusOK {
		// The upstream holds the room and sends its own confirmation email;
		// the engine treats this as booking success.
		return BookingOutcome{
			Kind:      OutcomePendingEmail,
			BookingID: formValue(bookID),
		}, nil
	}

	reason := "final booking step failed"
	if msg, ok := resp["error"].(string); ok && msg != "" {
		reason = msg
	}
	return BookingOutcome{Kind: OutcomeRejected, Reason: reason}, nil
}

// postForm issues one form-encoded POST with the browser-mimicking headers
// the upstream's widget sends. Network errors are wrapped as
// ErrUpstreamUnreachable; the caller interprets status codes.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", fmt.Sprintf("%s/spaces?lid=%s&gid=%s", c.baseURL, c.lid, c.gid))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrUpstreamUnreachable, err)
	}
	return body, resp.StatusCode, nil
}

func deref(o *BookingOutcome) BookingOutcome {
	if o == nil {
		return BookingOutcome{}
	}
	return *o
}
