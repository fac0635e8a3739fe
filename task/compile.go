package task

// Compile turns the tasks of an intent document into pending records.
// Order is preserved; reordering is the scheduler's job.
func Compile(doc IntentDocument, reqCtx *RequestContext) []*Record {
	records := make([]*Record, 0, len(doc.Tasks))

	for _, spec := range doc.Tasks {
		priority := DefaultPriority
		if spec.Priority != nil {
			priority = *spec.Priority
		}

		deps := make([]string, len(spec.DependsOn))
		copy(deps, spec.DependsOn)

		rec := &Record{
			ID:          spec.ID,
			Type:        spec.Type,
			Description: spec.Description,
			Input:       spec.Input,
			Priority:    priority,
			DependsOn:   deps,
			Status:      StatusPending,
		}

		if reqCtx != nil {
			rec.UserID = reqCtx.UserID
			if len(reqCtx.Thread) > 0 {
				rec.Thread = make([]ThreadMessage, len(reqCtx.Thread))
				copy(rec.Thread, reqCtx.Thread)
			}
			if reqCtx.Media != nil {
				media := *reqCtx.Media
				rec.Media = &media
			}
		}

		records = append(records, rec)
	}

	return records
}
