/*
Package domain contains the core domain models of Runecast.

It defines the fundamental entities of a rune reading: the runes and spreads of
the catalog, the selections a user makes, the interpretation returned by the
external interpreter and the persisted reading records. This package is kept pure
and free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Rune: A single symbol with upright and reversed meanings.
  - Spread: A named layout specifying how many runes a reading requires.
  - SelectedRune: A drawn rune and its orientation, ordered by position.
  - Session: The mutable snapshot of an in-progress reading (mode, spread, selections, status).
  - ReadingRecord: A persisted, immutable completed reading.
*/
package domain
