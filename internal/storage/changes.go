package storage

import "strings"

// ResyncPayload asks listeners to drop every cached record
const ResyncPayload = "*"

// maxChangePayload stays below the PostgreSQL NOTIFY payload limit of 8000 bytes
const maxChangePayload = 7900

// ChangePayload encodes the "contenttype:id" references touched by one write as a
// comma separated notification payload. Duplicates and empty references are dropped.
// A list too long for one notification becomes ResyncPayload.
func ChangePayload(refs []string) string {
	seen := make(map[string]bool, len(refs))
	kept := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		kept = append(kept, ref)
	}

	payload := strings.Join(kept, ",")
	if len(payload) > maxChangePayload {
		return ResyncPayload
	}
	return payload
}

// ParseChangePayload decodes a notification payload.
// all is true when every cached record should be dropped.
func ParseChangePayload(payload string) (refs []string, all bool) {
	for _, ref := range strings.Split(payload, ",") {
		ref = strings.TrimSpace(ref)
		switch ref {
		case "":
			continue
		case ResyncPayload:
			return nil, true
		}
		refs = append(refs, ref)
	}
	return refs, false
}
