package lineproto

import (
	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/invopop/jsonschema"
)

const schemaID = "https://github.com/Thnoxs/localy-v1/schemas/event-record.json"

// Schema describes one stdout line of a login or upload child.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}

	s := r.Reflect(&domain.WireRecord{})
	s.ID = schemaID
	s.Title = "localy child event record"
	s.Description = "One JSON object per line on the stdout of a login or upload process."

	return s
}
