package admin

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/siltchest/internal/engine"
	"github.com/mnohosten/siltchest/internal/value"
)

// entryType is the flattened shape of a Get result. There is no nested
// document model to justify the teacher's JSON scalar, so each Value
// variant gets its own typed field instead.
var entryType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Entry",
	Description: "The result of looking up a single key",
	Fields: graphql.Fields{
		"key": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.String),
			Description: "The key that was looked up",
		},
		"found": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Boolean),
			Description: "Whether the key was present",
		},
		"type": &graphql.Field{
			Type:        graphql.String,
			Description: "The value's type: integer, float, string, boolean or null",
		},
		"stringValue": &graphql.Field{
			Type: graphql.String,
		},
		"intValue": &graphql.Field{
			Type: graphql.Int,
		},
		"floatValue": &graphql.Field{
			Type: graphql.Float,
		},
		"boolValue": &graphql.Field{
			Type: graphql.Boolean,
		},
	},
})

// statsType mirrors engine.Stats.
var statsType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Stats",
	Description: "A point-in-time snapshot of engine state",
	Fields: graphql.Fields{
		"memTableSize": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"numRuns":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"runIds": &graphql.Field{
			Type: graphql.NewList(graphql.NewNonNull(graphql.String)),
		},
	},
})

// entryResult is the Go value entryType.Fields resolves against.
type entryResult struct {
	Key         string      `json:"key"`
	Found       bool        `json:"found"`
	Type        string      `json:"type,omitempty"`
	StringValue interface{} `json:"stringValue,omitempty"`
	IntValue    interface{} `json:"intValue,omitempty"`
	FloatValue  interface{} `json:"floatValue,omitempty"`
	BoolValue   interface{} `json:"boolValue,omitempty"`
}

func toEntryResult(key string, v value.Value, found bool) entryResult {
	er := entryResult{Key: key, Found: found}
	if !found {
		return er
	}
	er.Type = v.Type.String()
	switch v.Type {
	case value.TypeInteger:
		er.IntValue = v.Int
	case value.TypeFloat:
		er.FloatValue = v.Flt
	case value.TypeString:
		er.StringValue = v.Str
	case value.TypeBoolean:
		er.BoolValue = v.Bool
	}
	return er
}

// newSchema builds the read-only query schema: get(key) and stats. There
// are no mutations — writes go through the TCP wire protocol, not the
// admin surface.
func newSchema(eng *engine.Engine) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root query type for the admin surface",
		Fields: graphql.Fields{
			"get": &graphql.Field{
				Type:        graphql.NewNonNull(entryType),
				Description: "Look up a single key",
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					key, _ := p.Args["key"].(string)
					v, ok, err := eng.Get(key)
					if err != nil {
						return nil, err
					}
					return toEntryResult(key, v, ok), nil
				},
			},
			"stats": &graphql.Field{
				Type:        graphql.NewNonNull(statsType),
				Description: "A point-in-time snapshot of engine state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return eng.Stats(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// graphQLRequest is the standard POST /graphql body.
type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// graphQLHandler is an HTTP handler wrapping one compiled schema.
// Adapted from the teacher's pkg/graphql.Handler.
type graphQLHandler struct {
	schema graphql.Schema
}

func newGraphQLHandler(eng *engine.Engine) *graphQLHandler {
	schema, err := newSchema(eng)
	if err != nil {
		// The schema is a compile-time-fixed literal; a build failure here
		// is a programming error, not a runtime condition to recover from.
		panic(fmt.Sprintf("admin: invalid graphql schema: %v", err))
	}
	return &graphQLHandler{schema: schema}
}

func (h *graphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "graphql only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "invalid request body"}},
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
