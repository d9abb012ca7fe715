package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bankdash/internal/config"
	"bankdash/internal/core"
	ports "bankdash/internal/sheets"
)

const lastColumn = "F"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	activitySheet string
}

// Ensure interface conformance
var (
	_ ports.ActivityExporter = (*Client)(nil)
	_ ports.ActivityLister   = (*Client)(nil)
)

// Options selects the spreadsheet and the credentials. When both OAuth
// documents are set they take precedence over service account credentials
// from the environment.
type Options struct {
	SpreadsheetID   string
	ActivitySheet   string
	OAuthClientJSON []byte
	OAuthTokenJSON  []byte
}

// OptionsFromConfig resolves inline or file based OAuth documents.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	clientJSON, err := readSecret(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return Options{}, fmt.Errorf("oauth client: %w", err)
	}
	tokenJSON, err := readSecret(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return Options{}, fmt.Errorf("oauth token: %w", err)
	}
	return Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ActivitySheet:   cfg.GoogleActivitySheet,
		OAuthClientJSON: clientJSON,
		OAuthTokenJSON:  tokenJSON,
	}, nil
}

func readSecret(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if file == "" {
		return nil, nil
	}
	return os.ReadFile(file)
}

// New creates a Sheets client for the activity sheet.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.ActivitySheet)
	if sheet == "" {
		sheet = "Activity"
	}

	var (
		svc *gsheet.Service
		err error
	)
	if len(opts.OAuthClientJSON) > 0 || len(opts.OAuthTokenJSON) > 0 {
		svc, err = newOAuthService(ctx, opts.OAuthClientJSON, opts.OAuthTokenJSON)
	} else {
		svc, err = newSheetsService(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, activitySheet: sheet}, nil
}

// newOAuthService uses a user token produced by cmd/oauth-init.
func newOAuthService(ctx context.Context, clientJSON, tokenJSON []byte) (*gsheet.Service, error) {
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return nil, errors.New("oauth client and token must be provided together")
	}
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// refreshes go through the pooled client as well
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauth2.NewClient(ctx, cfg.TokenSource(ctx, &tok))

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token", "scope", gsheet.SpreadsheetsScope)
	return gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing credentials (set GOOGLE_OAUTH_CLIENT_*/GOOGLE_OAUTH_TOKEN_*, GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendTransfer writes the transfer on the first empty row. A transfer id
// already present in column B is not written twice, which makes redelivered
// queue messages harmless.
func (c *Client) AppendTransfer(ctx context.Context, t core.Transfer) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.readCol(ctx, "B:B")
	if err != nil {
		return "", fmt.Errorf("failed to read transfer ids from %s: %w", c.activitySheet, err)
	}
	if row := indexOf(ids, t.ID); row >= 0 {
		slog.InfoContext(ctx, "Transfer already exported", "transfer_id", t.ID, "row", row+1)
		return rowRange(c.activitySheet, row+1), nil
	}

	values := [][]any{}
	nextRow := len(ids) + 1
	if len(ids) == 0 {
		values = append(values, headerValues())
		nextRow++
	}
	values = append(values, ports.NewActivityRow(t).Values())

	firstRow := nextRow - len(values) + 1
	rng := fmt.Sprintf("%s!A%d:%s%d", quoteSheet(c.activitySheet), firstRow, lastColumn, nextRow)
	vr := &gsheet.ValueRange{Values: values}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}

	return rowRange(c.activitySheet, nextRow), nil
}

// ListActivity returns every exported row below the header.
func (c *Client) ListActivity(ctx context.Context) ([]ports.ActivityRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:%s", quoteSheet(c.activitySheet), lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := make([]ports.ActivityRow, 0, len(resp.Values))
	for _, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		rows = append(rows, ports.ActivityRowFromValues(toStrings(r)))
	}
	return rows, nil
}

func (c *Client) readCol(ctx context.Context, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", quoteSheet(c.activitySheet), col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(fmt.Sprint(row[0])))
	}
	return out, nil
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// quoteSheet wraps names that A1 notation cannot take bare.
func quoteSheet(name string) string {
	if name == "" {
		return name
	}
	bare := true
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			bare = false
			break
		}
	}
	if bare {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
