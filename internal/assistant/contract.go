package assistant

// EditCatalog describes the named edit operations the assistant may request
// through the apply_edit tool. Unrecognized names are accepted and treated as
// a no-op preview rather than an error.
const EditCatalog = `# Draftpilot Edit Operations

The apply_edit tool accepts one operation name per call. Names are matched
case-insensitively and tolerate natural phrasing ("make it shorter" maps to
shorten). Every operation is deterministic and previewed to the user before
it touches the draft; the user confirms or discards the preview.

## Catalog

- **shorten** — if the draft exceeds 240 characters, truncate to 220 and
  append an ellipsis. Shorter drafts are returned unchanged.
- **lengthen** — append a closing call-to-action line. Not idempotent:
  repeated calls keep appending.
- **tighten_hook** — rework the first line only: strip leading punctuation
  and prefix an attention marker.
- **add_cta** — append an engagement-prompt line.
- **casual** — rewrite formal phrasing toward contractions (do not → don't).
- **professional** — the inverse: contractions toward formal phrasing.
- **upbeat** — append a trailing emphasis token.

## Rules

1. One operation per apply_edit call. Requesting a second operation before
   the user confirms replaces the pending preview; previews never compound.
2. The operation always applies to the current committed draft, not to an
   unconfirmed preview.
3. Unknown operation names preview no changes. Prefer names from this
   catalog.
4. To replace the whole draft (for example with freshly generated content),
   use update_draft instead; it bypasses the preview.
`
