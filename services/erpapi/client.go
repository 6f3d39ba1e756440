// Package erpapi is the client of the school ERP backend REST API. Every request carries the
// session cookie; list responses keep the envelope style of their entity kind.
package erpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
)

const requestIDHeader = "X-Request-ID"

type Client struct {
	baseURL    string
	base       *url.URL
	cookieName string
	http       *http.Client
	rest       *rest.Client
	log        core.Logger
}

// NewClient returns a client of the API rooted at conf.BaseURL (e.g. http://host/api/v1).
func NewClient(conf core.APIConfig, logger core.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(conf.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("erpapi: invalid base URL %q", conf.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "erpapi: cookie jar")
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	name := conf.SessionCookieName
	if name == "" {
		name = "token"
	}

	hc := &http.Client{Jar: jar, Timeout: conf.Timeout}
	c := &Client{
		baseURL:    base.String(),
		base:       base,
		cookieName: name,
		http:       hc,
		rest:       &rest.Client{HTTPClient: hc},
		log:        logger,
	}
	if conf.SessionCookie != "" {
		c.SetSession(conf.SessionCookie)
	}
	return c, nil
}

// envelope covers both response styles. Which discriminator counts depends on the kind.
type envelope struct {
	Success *bool   `json:"success"`
	Status  *string `json:"status"`
	Message string  `json:"message"`
	Error   string  `json:"error"`
}

func (c *Client) send(ctx context.Context, method rest.Method, path string, body interface{}) (*rest.Response, error) {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Accept":        "application/json",
			requestIDHeader: uuid.NewString(),
		},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "erpapi: encoding request")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	start := time.Now()
	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		c.log.Warn(fmt.Sprintf("erpapi: %s %s failed after %s", method, path, time.Since(start)), err)
		return nil, &TransportError{Op: string(method) + " " + path, Err: err}
	}
	c.log.Debug(fmt.Sprintf("erpapi: %s %s -> %d in %s (%s)", method, path, resp.StatusCode, time.Since(start), req.Headers[requestIDHeader]))
	return resp, nil
}

// decode reads the envelope of resp for kind and returns the raw JSON of listField, if asked.
func decode(resp *rest.Response, spec record.KindSpec, listField string) (json.RawMessage, error) {
	var env envelope
	var raw map[string]json.RawMessage
	body := strings.TrimSpace(resp.Body)
	parsed := body != "" && json.Unmarshal([]byte(body), &env) == nil && json.Unmarshal([]byte(body), &raw) == nil

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if parsed {
			apiErr.Message = plainText(firstNonEmpty(env.Message, env.Error))
		}
		return nil, apiErr
	}
	if !parsed {
		if listField != "" {
			return nil, &APIError{Status: resp.StatusCode}
		}
		return nil, nil
	}

	ok := true
	switch spec.Envelope {
	case record.EnvelopeStatusSubjects:
		if env.Status != nil {
			ok = strings.EqualFold(*env.Status, "success")
		}
	default:
		if env.Success != nil {
			ok = *env.Success
		}
	}
	if !ok {
		return nil, &APIError{Status: resp.StatusCode, Message: plainText(firstNonEmpty(env.Message, env.Error))}
	}
	if listField == "" {
		return nil, nil
	}
	return raw[listField], nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FetchAll loads the whole collection of kind.
func (c *Client) FetchAll(ctx context.Context, kind record.Kind) ([]record.Map, error) {
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return nil, errors.Wrapf(record.ErrUnknownKind, "%q", kind)
	}
	resp, err := c.send(ctx, rest.Get, spec.FetchPath, nil)
	if err != nil {
		return nil, err
	}
	list, err := decode(resp, spec, spec.ListField)
	if err != nil {
		return nil, err
	}
	recs := make([]record.Map, 0)
	if len(list) == 0 || string(list) == "null" {
		return recs, nil
	}
	if err := json.Unmarshal(list, &recs); err != nil {
		return nil, errors.Wrapf(err, "erpapi: decoding %s", spec.Plural)
	}
	return recs, nil
}

// Delete removes the record of kind identified by id.
func (c *Client) Delete(ctx context.Context, kind record.Kind, id string) error {
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return errors.Wrapf(record.ErrUnknownKind, "%q", kind)
	}
	resp, err := c.send(ctx, rest.Delete, spec.DeleteURLPath(id), nil)
	if err != nil {
		return err
	}
	_, err = decode(resp, spec, "")
	return err
}

// Create registers rec as a new record of kind.
func (c *Client) Create(ctx context.Context, kind record.Kind, rec record.Map) error {
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return errors.Wrapf(record.ErrUnknownKind, "%q", kind)
	}
	resp, err := c.send(ctx, rest.Post, spec.CreatePath, rec)
	if err != nil {
		return err
	}
	_, err = decode(resp, spec, "")
	return err
}

// Update saves rec over the record of kind identified by id.
func (c *Client) Update(ctx context.Context, kind record.Kind, id string, rec record.Map) error {
	spec := record.Spec(kind)
	if spec.Kind == "" {
		return errors.Wrapf(record.ErrUnknownKind, "%q", kind)
	}
	resp, err := c.send(ctx, rest.Put, spec.UpdateURLPath(id), rec)
	if err != nil {
		return err
	}
	_, err = decode(resp, spec, "")
	return err
}
