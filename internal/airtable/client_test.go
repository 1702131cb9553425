// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package airtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/vcardctl/internal/resource"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithRetryWait(time.Millisecond, 2*time.Millisecond),
	}, opts...)
	return NewClient("tok", "appBase", opts...)
}

func TestClient_List_Paginates(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBase/Redes", r.URL.Path)
		assert.Equal(t, "Orden", r.URL.Query().Get("sort[0][field]"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort[0][direction]"))

		switch r.URL.Query().Get("offset") {
		case "":
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{"Name":"a"}}],"offset":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"records":[{"id":"rec2","fields":{"Name":"b"}}]}`)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	recs, err := c.List(context.Background(), resource.Social, SortedBy("Orden", "DESC"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec1", recs[0].ID)
	assert.Equal(t, "b", recs[1].String("Name"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_List_MaxRecordsStopsPaging(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[{"id":"rec1"},{"id":"rec2"}],"offset":"more"}`)
	})

	recs, err := c.List(context.Background(), resource.Social, ListOptions{MaxRecords: 2})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestClient_TableOverride(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/My Links", r.URL.Path)
		fmt.Fprint(w, `{"records":[]}`)
	}, WithTableNames(map[resource.Key]string{resource.Social: "My Links", resource.Gallery: "  "}))

	_, err := c.List(context.Background(), resource.Social, ListOptions{})
	require.NoError(t, err)

	name, err := c.TableName(resource.Gallery)
	require.NoError(t, err)
	assert.Equal(t, "Galeria", name)

	_, err = c.TableName("nope")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"TABLE_NOT_FOUND","message":"Could not find table"}}`)
	})

	_, err := c.List(context.Background(), resource.Social, ListOptions{})
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "TABLE_NOT_FOUND", te.Type)
	assert.Equal(t, ClassClient, te.Class())
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"records":[{"id":"rec1"}]}`)
	})

	recs, err := c.List(context.Background(), resource.Social, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ServerErrorsExhaustRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryMax(2))

	_, err := c.List(context.Background(), resource.Social, ListOptions{})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":`)
	})

	_, err := c.List(context.Background(), resource.Social, ListOptions{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ClassServer, te.Class())
	assert.True(t, te.Retryable())
}

func TestClient_MissingCredentials(t *testing.T) {
	c := NewClient("", "app")
	_, err := c.List(context.Background(), resource.Social, ListOptions{})
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, IsRetryable(err))

	c = NewClient("tok", " ")
	_, err = c.List(context.Background(), resource.Social, ListOptions{})
	assert.ErrorIs(t, err, ErrMissingBase)
}

func TestClient_Get(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/appBase/Contacto/rec1":
			fmt.Fprint(w, `{"id":"rec1","createdTime":"2024-05-01T10:00:00.000Z","fields":{"Telefono":"+34 600"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"NOT_FOUND"}`)
		}
	})

	rec := c.Get(context.Background(), resource.Contact, "rec1")
	require.NotNil(t, rec)
	assert.Equal(t, "+34 600", rec.String("Telefono"))
	assert.Equal(t, 2024, rec.CreatedTime.Year())

	assert.Nil(t, c.Get(context.Background(), resource.Contact, "missing"))
	assert.Nil(t, c.Get(context.Background(), "nope", "rec1"))
}

func TestClient_Writes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/appBase/Redes", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.JSONEq(t, `{"fields":{"Name":"GitHub","Activo":true}}`, string(body))
			fmt.Fprint(w, `{"id":"recNew","fields":{"Name":"GitHub","Activo":true}}`)
		case http.MethodPatch:
			assert.Equal(t, "/appBase/Redes/recNew", r.URL.Path)
			assert.JSONEq(t, `{"fields":{"Activo":false}}`, string(body))
			fmt.Fprint(w, `{"id":"recNew","fields":{"Name":"GitHub"}}`)
		case http.MethodDelete:
			if r.URL.Path == "/appBase/Redes/recNew" {
				fmt.Fprint(w, `{"id":"recNew","deleted":true}`)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	rec, err := c.Create(ctx, resource.Social, map[string]any{"Name": "GitHub", "Activo": true})
	require.NoError(t, err)
	assert.Equal(t, "recNew", rec.ID)
	assert.True(t, rec.Bool("Activo"))

	rec, err = c.Update(ctx, resource.Social, "recNew", map[string]any{"Activo": false})
	require.NoError(t, err)
	assert.False(t, rec.Bool("Activo"))

	assert.True(t, c.Delete(ctx, resource.Social, "recNew"))
	assert.False(t, c.Delete(ctx, resource.Social, "recGone"))
}

func TestClient_Find(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "{Activo} = TRUE()", r.URL.Query().Get("filterByFormula"))
		fmt.Fprint(w, `{"records":[{"id":"rec1"}]}`)
	})

	recs, err := c.Find(context.Background(), resource.Social, "{Activo} = TRUE()")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestClient_Tables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta/bases/appBase/tables", r.URL.Path)
		fmt.Fprint(w, `{"tables":[
			{"id":"tbl1","name":"Redes","primaryFieldId":"fld1","fields":[
				{"id":"fld1","name":"Name","type":"singleLineText"},
				{"id":"fld2","name":"Activo","type":"checkbox"}]},
			{"id":"tbl2","name":"Galeria","fields":[]}]}`)
	})

	tables, err := c.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Redes", tables[0].Name)
	assert.Equal(t, "fld1", tables[0].PrimaryFieldID)

	f, ok := tables[0].Field("Activo")
	assert.True(t, ok)
	assert.Equal(t, "checkbox", f.Type)

	_, ok = tables[1].Field("Activo")
	assert.False(t, ok)
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx, resource.Social, ListOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type socialFields struct {
	Name   string `json:"Name,omitempty"`
	Activo bool   `json:"Activo,omitempty"`
}

func decodeSocial(r Record) socialFields {
	return socialFields{Name: r.String("Name"), Activo: r.Bool("Activo")}
}

func TestTable_Typed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{"Name":"X","Activo":"yes"}}]}`)
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"fields":{"Name":"Y","Activo":true}}`, string(body))
			fmt.Fprint(w, `{"id":"rec2","fields":{"Name":"Y","Activo":true}}`)
		}
	})
	tbl := NewTable(c, resource.Social, decodeSocial)
	assert.Equal(t, resource.Social, tbl.Resource())

	rows, err := tbl.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, socialFields{Name: "X"}, rows[0].Fields)

	row, err := tbl.Create(context.Background(), socialFields{Name: "Y", Activo: true})
	require.NoError(t, err)
	assert.Equal(t, "rec2", row.ID)
	assert.True(t, row.Fields.Activo)
	assert.Equal(t, "rec2", row.Raw.ID)
	assert.JSONEq(t, `{"Name":"Y","Activo":true}`, string(row.Raw.Fields))
}
