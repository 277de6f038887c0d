// Package ainote is the composition root of the note service.
//
// It wires the domain in pkg/core to a storage adapter (memory, fs, sqlite
// or mongo) and, optionally, to a Gemini assistant, using functional
// options.
//
// The domain covers three pieces:
//
//   - Aggregation: Service.MyAndShared merges the caller's notes with the
//     notes shared with them, newest first and without duplicates.
//   - Projection: pkg/view filters, groups by stack and orders the merged
//     list into displayable rows with per-category expand/collapse.
//   - Editing: Session loads, validates, saves, deletes and shares a single
//     note.
//
// Usage:
//
//	svc, err := ainote.New("./notes",
//		ainote.WithAdapter("fs"),
//		ainote.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	notes, err := svc.MyAndShared(ctx, "alice")
package ainote
