package handlers

import (
	"bytes"
	"context"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
	"github.com/asakaida/contentkit/internal/services"
	"github.com/asakaida/contentkit/internal/widget"
	"github.com/asakaida/contentkit/internal/widget/textlist"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ContentManager is the part of the entity manager the handlers use
type ContentManager interface {
	Find(ctx context.Context, contenttype, id string) (*entities.Content, error)
	Present(ctx context.Context, entity *entities.Content) (map[string]interface{}, error)
	Related(ctx context.Context, contenttype, id, field string) ([]*entities.Content, error)
	Incoming(ctx context.Context, contenttype, id string) ([]*entities.Relation, error)
	Relate(ctx context.Context, contenttype, id, field string, targetIDs []string) error
	Unrelate(ctx context.Context, contenttype, id, field string, targetIDs []string) error
	Delete(ctx context.Context, contenttype, id string) error
}

// ContentHandler handles Content service gRPC requests
type ContentHandler struct {
	manager  ContentManager
	forms    services.FormServiceInterface
	types    services.ContentTypeProvider
	messages widget.Messages
}

var _ ContentServer = (*ContentHandler)(nil)

// NewContentHandler creates a new ContentHandler
func NewContentHandler(manager ContentManager, forms services.FormServiceInterface) *ContentHandler {
	return &ContentHandler{
		manager: manager,
		forms:   forms,
	}
}

// WithWidgets enables the Render RPC.
// A nil catalog uses the built-in messages.
func (h *ContentHandler) WithWidgets(types services.ContentTypeProvider, messages widget.Messages) *ContentHandler {
	h.types = types
	h.messages = messages
	if h.messages == nil {
		h.messages = widget.DefaultCatalog()
	}
	return h
}

// Get handles the Get RPC
// Request: {contenttype, id}
func (h *ContentHandler) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, id, err := recordArgs(req)
	if err != nil {
		return nil, err
	}

	entity, err := h.manager.Find(ctx, contenttype, id)
	if err != nil {
		return nil, toStatus(err, "failed to get content")
	}

	record, err := h.present(ctx, entity)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]interface{}{"record": record})
}

// Submit handles the Submit RPC
// Request: {contenttype, id?, values: {field: value, relation: {field: [ids]}}}
func (h *ContentHandler) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, err := requireString(req, "contenttype")
	if err != nil {
		return nil, err
	}
	id := optionalString(req, "id")

	values := req.GetFields()["values"].GetStructValue()
	if values == nil {
		return nil, status.Error(codes.InvalidArgument, "values is required")
	}

	entity, revision, err := h.forms.Submit(ctx, contenttype, id, values.AsMap())
	if err != nil {
		return nil, toStatus(err, "failed to submit content")
	}

	record, err := h.present(ctx, entity)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]interface{}{
		"record":   record,
		"revision": revision,
	})
}

// Relations handles the Relations RPC
// Request: {contenttype, id, field?}
// With a field, the records the field points at are returned in sort order.
// Relations pointing at the record are always returned as incoming.
func (h *ContentHandler) Relations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, id, err := recordArgs(req)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{}
	if field := optionalString(req, "field"); field != "" {
		related, err := h.manager.Related(ctx, contenttype, id, field)
		if err != nil {
			return nil, toStatus(err, "failed to load related content")
		}
		records := make([]interface{}, 0, len(related))
		for _, entity := range related {
			record, err := h.present(ctx, entity)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		response["related"] = records
	}

	incoming, err := h.manager.Incoming(ctx, contenttype, id)
	if err != nil {
		return nil, toStatus(err, "failed to load incoming relations")
	}
	relations := make([]interface{}, 0, len(incoming))
	for _, rel := range incoming {
		relations = append(relations, relationToMap(rel))
	}
	response["incoming"] = relations

	return toStruct(response)
}

// Relate handles the Relate RPC
// Request: {contenttype, id, field, targets: [ids]}
func (h *ContentHandler) Relate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, id, field, targets, err := relationArgs(req)
	if err != nil {
		return nil, err
	}

	if err := h.manager.Relate(ctx, contenttype, id, field, targets); err != nil {
		return nil, toStatus(err, "failed to relate content")
	}
	return h.relatedResponse(ctx, contenttype, id, field)
}

// Unrelate handles the Unrelate RPC
// Request: {contenttype, id, field, targets: [ids]}
func (h *ContentHandler) Unrelate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, id, field, targets, err := relationArgs(req)
	if err != nil {
		return nil, err
	}

	if err := h.manager.Unrelate(ctx, contenttype, id, field, targets); err != nil {
		return nil, toStatus(err, "failed to unrelate content")
	}
	return h.relatedResponse(ctx, contenttype, id, field)
}

// Delete handles the Delete RPC
// Request: {contenttype, id}
func (h *ContentHandler) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	contenttype, id, err := recordArgs(req)
	if err != nil {
		return nil, err
	}

	if err := h.manager.Delete(ctx, contenttype, id); err != nil {
		return nil, toStatus(err, "failed to delete content")
	}
	return toStruct(map[string]interface{}{"deleted": true})
}

// Render handles the Render RPC
// Request: {contenttype, id, field}. Returns the edit widget markup of a textlist field.
func (h *ContentHandler) Render(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if h.types == nil {
		return nil, status.Error(codes.FailedPrecondition, "widget rendering is not configured")
	}
	contenttype, id, err := recordArgs(req)
	if err != nil {
		return nil, err
	}
	field, err := requireString(req, "field")
	if err != nil {
		return nil, err
	}

	ct, err := h.types.GetContentType(ctx, contenttype)
	if err != nil {
		return nil, toStatus(err, "failed to render widget")
	}
	def := ct.GetField(field)
	if def == nil || def.Type != "textlist" {
		return nil, status.Errorf(codes.InvalidArgument, "%s has no textlist field %s", contenttype, field)
	}

	entity, err := h.manager.Find(ctx, contenttype, id)
	if err != nil {
		return nil, toStatus(err, "failed to render widget")
	}
	value, _ := entity.Get(field)
	items, err := fieldtypes.ToTextList(value)
	if err != nil {
		return nil, toStatus(err, "failed to render widget")
	}
	serialized, err := items.Marshal()
	if err != nil {
		return nil, toStatus(err, "failed to render widget")
	}

	list, err := textlist.New(field, serialized, textlist.WithMessages(h.messages))
	if err != nil {
		return nil, toStatus(err, "failed to render widget")
	}
	var buf bytes.Buffer
	if err := list.Render(&buf); err != nil {
		return nil, toStatus(err, "failed to render widget")
	}

	return toStruct(map[string]interface{}{
		"field": field,
		"value": list.Value(),
		"html":  buf.String(),
	})
}

func (h *ContentHandler) present(ctx context.Context, entity *entities.Content) (map[string]interface{}, error) {
	record, err := h.manager.Present(ctx, entity)
	if err != nil {
		return nil, toStatus(err, "failed to present content")
	}
	record["created_at"] = entity.CreatedAt
	record["updated_at"] = entity.UpdatedAt
	return record, nil
}

// relatedResponse reports the target IDs of a relation field after a change
func (h *ContentHandler) relatedResponse(ctx context.Context, contenttype, id, field string) (*structpb.Struct, error) {
	related, err := h.manager.Related(ctx, contenttype, id, field)
	if err != nil {
		return nil, toStatus(err, "failed to load related content")
	}
	ids := make([]string, 0, len(related))
	for _, entity := range related {
		ids = append(ids, entity.ID)
	}
	return toStruct(map[string]interface{}{
		"contenttype": contenttype,
		"id":          id,
		"field":       field,
		"targets":     ids,
	})
}

func recordArgs(req *structpb.Struct) (string, string, error) {
	contenttype, err := requireString(req, "contenttype")
	if err != nil {
		return "", "", err
	}
	id, err := requireString(req, "id")
	if err != nil {
		return "", "", err
	}
	return contenttype, id, nil
}

func relationArgs(req *structpb.Struct) (contenttype, id, field string, targets []string, err error) {
	if contenttype, id, err = recordArgs(req); err != nil {
		return
	}
	if field, err = requireString(req, "field"); err != nil {
		return
	}
	targets, err = stringList(req, "targets")
	return
}
