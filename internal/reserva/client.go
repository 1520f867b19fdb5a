package reserva

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Reservation status codes used by the booking platform's admin API.
const (
	statusCodeConfirm = 1
	statusCodeCancel  = 3
)

// already cancelled on the booking platform side
const errAlreadyCancelled = 1007

const (
	approveMessageFormat = "ご予約ありがとうございます。事前登録に基づき、以下の内容でご予約が確定しました。予約時間帯のみ使用可能な鍵番号は %s です。"
	denyMessage          = "予約には事前登録が必要です。事前登録フォームからメールアドレスをご登録ください。事前登録に関する情報は回覧板にてお伝えしておりますのでご確認ください。"
)

// Config holds the booking platform connection settings.
type Config struct {
	BaseURL    string
	BusinessID string
	Timeout    time.Duration
}

// Client talks to the booking platform's admin API to approve or deny
// pending reservations.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new booking platform client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Approve confirms a reservation and mails the requester the key
// number valid for the reserved window.
func (c *Client) Approve(ctx context.Context, rsvNo, keyNo string) (Result, error) {
	return c.changeStatus(ctx, rsvNo, statusCodeConfirm, fmt.Sprintf(approveMessageFormat, keyNo))
}

// Deny rejects a reservation with the pre-registration guidance message.
func (c *Client) Deny(ctx context.Context, rsvNo string) (Result, error) {
	return c.changeStatus(ctx, rsvNo, statusCodeCancel, denyMessage)
}

// statusResponse is the admin API's JSON envelope. A positive ret is
// an application-level error number.
type statusResponse struct {
	Ret json.Number `json:"ret"`
	Msg string      `json:"msg"`
}

func (c *Client) changeStatus(ctx context.Context, rsvNo string, status int, message string) (Result, error) {
	form := url.Values{}
	form.Set("cmd", "change_rsv_status")
	form.Set("rsv_no", rsvNo)
	form.Set("rsv_status", strconv.Itoa(status))
	form.Set("text_context", message)
	form.Set("is_admin", "1")
	form.Set("bus_cd", c.config.BusinessID)
	form.Set("mail_context", "")
	form.Set("payment_flg", "0")
	form.Set("request_view_type", "reserve_detail")

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/AjaxSearch", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{
			Outcome: OutcomeFailed,
			Detail:  fmt.Sprintf("status_code=%d", resp.StatusCode),
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}
	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{}, fmt.Errorf("decoding response: %w", err)
	}

	errNo, err := sr.Ret.Int64()
	if err != nil {
		return Result{}, fmt.Errorf("decoding ret %q: %w", sr.Ret, err)
	}
	if errNo > 0 {
		if errNo == errAlreadyCancelled {
			return Result{Outcome: OutcomeAlreadyCancelled}, nil
		}
		return Result{
			Outcome: OutcomeFailed,
			Detail:  fmt.Sprintf("[%d] %s", errNo, sr.Msg),
		}, nil
	}

	return Result{Outcome: OutcomeSuccess}, nil
}
