/*
Package runecast casts and interprets Elder Futhark rune readings and keeps
a journal of them.

A reading is a small state machine. The user picks how runes are acquired
(drawn physically and recorded, or drawn virtually), picks a spread, then
draws runes one at a time. Once the spread is full the runes are sent to an
interpreter exactly once; the result can be saved to the journal or
discarded. A failed interpreter call never loses the drawn runes: the
session shows a placeholder reading and can be retried.

# Usage

	app, err := runecast.New() // offline oracle, in-memory journal
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()
	snap, rec, err := app.Cast(ctx, domain.ModeVirtual, "Three Norns", nil, true)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(snap.Result.Summary, rec.ID)

For step-by-step control open a session with App.NewSession and drive it
with ChooseMode, ChooseSpread, PickRune and ConfirmOrientation.

# Adapters

The journal is a ports.HistoryStore. Implementations live under
pkg/adapters: memory, file (a JSON array on disk), sqlite, badger and
redis. Any of them can be wrapped with pkg/persistence/middleware, e.g. to
encrypt journal text at rest.

Interpreters implement ports.Interpreter: pkg/adapters/openai talks to an
OpenAI-compatible chat completion API; pkg/adapters/oracle composes readings
offline from the catalog's own meanings.

The same App can be served over HTTP (pkg/adapters/http) or to MCP clients
(pkg/adapters/mcp).
*/
package runecast
