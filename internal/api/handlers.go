package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/schemakit/internal/apperr"
	"github.com/danmuck/schemakit/internal/jsonld"
	"github.com/danmuck/schemakit/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) endpoints() []endpoint {
	rules := s.deps.Rules
	return []endpoint{
		{method: http.MethodPost, path: "/api/schemas", operation: "create", rule: rules.Create, protected: true, handle: s.create},
		{method: http.MethodGet, path: "/api/schemas", operation: "read", rule: rules.Read, protected: true, handle: s.read},
		{method: http.MethodPost, path: "/api/schemas/preview", operation: "preview", rule: rules.Preview, protected: true, handle: s.preview},
		{method: http.MethodGet, path: renderPath, operation: "render", rule: rules.Render, handle: s.render},
		{method: http.MethodPatch, path: "/api/schemas/:id", operation: "update", rule: rules.Update, protected: true, handle: s.update},
	}
}

func (s *Server) create(c *gin.Context, req *request) (result, error) {
	payload, err := readPayload(c)
	if err != nil {
		return result{}, err
	}
	rec, err := s.deps.Service.Create(c.Request.Context(), req.userID, payload)
	if err != nil {
		return result{}, err
	}
	req.schemaID = rec.ID
	return result{
		status: http.StatusCreated,
		json:   gin.H{"schemaId": rec.ID, "dynamic": rec.Dynamic},
	}, nil
}

func (s *Server) read(c *gin.Context, req *request) (result, error) {
	req.schemaID = c.Query("id")
	doc, err := s.deps.Service.Get(c.Request.Context(), req.userID, req.schemaID)
	if err != nil {
		return result{}, err
	}
	return result{status: http.StatusOK, json: gin.H{"schema": doc}}, nil
}

func (s *Server) render(c *gin.Context, req *request) (result, error) {
	req.schemaID = c.Param("id")
	c.Header("Access-Control-Allow-Origin", "*")
	out, err := s.deps.Service.Render(c.Request.Context(), req.schemaID)
	if err != nil {
		return result{}, err
	}
	return result{status: http.StatusOK, raw: []byte(out), contentType: jsonld.ContentType}, nil
}

func (s *Server) update(c *gin.Context, req *request) (result, error) {
	req.schemaID = c.Param("id")
	patch, err := readPayload(c)
	if err != nil {
		return result{}, err
	}
	if err := s.deps.Service.Update(c.Request.Context(), req.userID, req.schemaID, patch); err != nil {
		return result{}, err
	}
	return result{status: http.StatusOK, json: gin.H{}}, nil
}

func (s *Server) preview(c *gin.Context, _ *request) (result, error) {
	payload, err := readPayload(c)
	if err != nil {
		return result{}, err
	}
	doc, fragment, err := s.deps.Service.Preview(c.Request.Context(), payload)
	if err != nil {
		return result{}, err
	}
	return result{status: http.StatusOK, json: gin.H{"document": doc, "jsonLd": fragment}}, nil
}

// readPayload reads the body as a JSON object. Malformed JSON is a validation
// failure at path "body".
func readPayload(c *gin.Context) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("Request body too large", validation.Violations{
				{Path: []string{"body"}, Message: "Request body too large"},
			})
		}
		return nil, apperr.Validation("Invalid JSON", validation.Violations{
			{Path: []string{"body"}, Message: "Invalid JSON"},
		})
	}
	payload, vs := validation.DecodePayload(body)
	if len(vs) > 0 {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid request body", Details: vs, Err: vs}
	}
	return payload, nil
}
