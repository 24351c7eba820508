// Package publisher holds what the publisher implementations share.
package publisher

import "github.com/JakeFAU/realtime-job-ingestor/internal/ingest"

// Attributes returns message attributes for payload. Records are tagged
// with their source and ids so subscribers can filter without decoding.
func Attributes(payload any) map[string]string {
	rec, ok := payload.(ingest.Record)
	if !ok {
		if p, isPtr := payload.(*ingest.Record); isPtr && p != nil {
			rec, ok = *p, true
		}
	}
	if !ok {
		return nil
	}
	return map[string]string{
		"job_source":  rec.SourceName,
		"source_id":   rec.SourceID,
		"internal_id": rec.InternalID,
	}
}
