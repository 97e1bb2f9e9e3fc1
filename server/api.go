package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chazu/kutes/jsondoc"
	"github.com/chazu/kutes/table"
	"github.com/chazu/kutes/vm"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type createSessionRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

type documentResponse struct {
	Kind string `json:"kind"`
	Rows int    `json:"rows"`
}

type evalRequest struct {
	Source string `json:"source" binding:"required"`
	// Root optionally names a handle to evaluate against instead of the
	// session document.
	Root string `json:"root"`
}

type evalResponse struct {
	Kind   string          `json:"kind"`
	Value  any             `json:"value,omitempty"`
	Handle string          `json:"handle,omitempty"`
	Error  *errorResponse  `json:"error,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Arg     int    `json:"arg,omitempty"`
	Where   string `json:"where,omitempty"`
}

type tableRequest struct {
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
	Time    string   `json:"time"`
	Sort    bool     `json:"sort"`
}

const mimeCBOR = "application/cbor"

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// session resolves the :id path parameter, aborting with 404 if unknown.
func (s *KutesServer) session(c *gin.Context) (*Session, bool) {
	session, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, fmt.Errorf("%w: %s", err, c.Param("id")))
		return nil, false
	}
	return session, true
}

// ---------------------------------------------------------------------------
// Sessions and documents
// ---------------------------------------------------------------------------

func (s *KutesServer) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abort(c, http.StatusBadRequest, err)
		return
	}

	v, err := s.worker.Do(c.Request.Context(), func(v *vm.VM) any {
		return v.NewInterpreter()
	})
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	session := s.sessions.Create(req.Name, v.(*vm.Interpreter))
	c.JSON(http.StatusCreated, sessionResponse{ID: session.ID, Name: session.Name, Created: session.Created})
}

func (s *KutesServer) destroySession(c *gin.Context) {
	if err := s.sessions.Destroy(c.Param("id")); err != nil {
		abort(c, http.StatusNotFound, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// putDocument replaces the session document. Handles into the previous
// document are released.
func (s *KutesServer) putDocument(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	doc, err := jsondoc.Read(c.Request.Body)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	_, err = s.worker.Do(c.Request.Context(), func(*vm.VM) any {
		session.Doc = doc
		session.Interp.SetRoot(doc.Root)
		return nil
	})
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if n := s.handles.ReleaseSession(session.ID); n > 0 {
		log.Debugf("session %s: released %d handles on new document", session.ID, n)
	}
	c.JSON(http.StatusOK, documentResponse{Kind: table.KindOf(doc.Root), Rows: len(table.Rows(doc.Root))})
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

func (s *KutesServer) eval(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req evalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	var root *jsondoc.Node
	if req.Root != "" {
		node, owner, ok := s.handles.Lookup(req.Root)
		if !ok || owner != session.ID {
			abort(c, http.StatusNotFound, fmt.Errorf("handle %q not found", req.Root))
			return
		}
		root = node
	}

	v, err := s.worker.Do(c.Request.Context(), func(*vm.VM) any {
		i := session.Interp
		if root != nil {
			saved := i.Root()
			i.SetRoot(root)
			defer i.SetRoot(saved)
		}
		r, _ := i.Evaluate(req.Source)
		return s.evalResponse(session, r)
	})
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *KutesServer) evalResponse(session *Session, r vm.Result) *evalResponse {
	resp := &evalResponse{Kind: r.Kind.String()}
	switch r.Kind {
	case vm.KindString:
		resp.Value = r.Str()
	case vm.KindInt:
		resp.Value = r.Int()
	case vm.KindBool:
		resp.Value = r.Bool()
	case vm.KindDouble:
		resp.Value = r.Double()
	case vm.KindJSON:
		resp.Handle = s.handles.Create(r.Node(), session.ID)
		if data, err := r.Node().MarshalJSON(); err == nil {
			resp.JSON = data
		}
	case vm.KindError:
		if r.Err == nil {
			// An error value produced by try.
			resp.Value = r.String()
			break
		}
		resp.Error = &errorResponse{
			Kind:    r.Err.Kind.String(),
			Message: r.Err.Message,
			Arg:     r.Err.ArgN,
			Where:   r.Err.Where,
		}
	case vm.KindOther:
		resp.Value = r.String()
	}
	return resp
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

func (s *KutesServer) table(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abort(c, http.StatusBadRequest, err)
		return
	}
	style, err := table.ParseTimeStyle(req.Time)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	type result struct {
		tbl    *table.Table
		status int
		err    error
	}
	v, err := s.worker.Do(c.Request.Context(), func(*vm.VM) any {
		if session.Doc == nil {
			return result{status: http.StatusConflict, err: errors.New("session has no document")}
		}
		kind := req.Kind
		if kind == "" {
			kind = table.KindOf(session.Doc.Root)
		}
		mv, ok := s.config.ViewFor(kind)
		if !ok {
			return result{status: http.StatusNotFound, err: fmt.Errorf("no view for kind %q", kind)}
		}
		view, err := table.NewView(session.Interp, mv)
		if err != nil {
			return result{status: http.StatusUnprocessableEntity, err: err}
		}
		view.TimeStyle = style
		tbl, err := view.Build(session.Doc.Root)
		if err != nil {
			return result{status: http.StatusUnprocessableEntity, err: err}
		}
		return result{tbl: tbl}
	})
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	res := v.(result)
	if res.err != nil {
		abort(c, res.status, res.err)
		return
	}

	tbl := res.tbl
	if err := tbl.Select(req.Columns...); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if req.Sort {
		tbl.SortByPrimary()
	}
	if strings.Contains(c.GetHeader("Accept"), mimeCBOR) {
		c.Status(http.StatusOK)
		c.Header("Content-Type", mimeCBOR)
		if err := tbl.WriteCBOR(c.Writer); err != nil {
			log.Errorf("writing cbor table: %v", err)
		}
		return
	}
	c.JSON(http.StatusOK, tbl)
}

// ---------------------------------------------------------------------------
// Handles
// ---------------------------------------------------------------------------

func (s *KutesServer) getHandle(c *gin.Context) {
	node, _, ok := s.handles.Lookup(c.Param("hid"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("handle %q not found", c.Param("hid")))
		return
	}
	data, err := node.MarshalJSON()
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *KutesServer) releaseHandle(c *gin.Context) {
	if !s.handles.Release(c.Param("hid")) {
		abort(c, http.StatusNotFound, fmt.Errorf("handle %q not found", c.Param("hid")))
		return
	}
	c.Status(http.StatusNoContent)
}
