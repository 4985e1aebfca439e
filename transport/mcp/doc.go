// Package mcp exposes the lane runner to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST call against the
// api package, so the same server state is shared by HTTP clients, websocket
// viewers and agents. Calls that fail on the transport or with a 5xx status
// are retried with exponential backoff.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: run summary and a text map of the nearby rows
//   - queue_move, bulk_move: queue steps, validated against the projected tile
//   - tick: advance world time by dt seconds for a number of frames
//   - restart_game, move_history
//   - describe_rows: row range with traffic gaps around the player's lane
//   - list_configs, game_instructions
//
// The map draws the furthest row on top, one character per lane:
//
//	    5 forest    |..T....T...|
//	    4 car    >> |===CCC=====|
//	    3 grass     |.....@.....|
//
// Transport modes are chosen in main: stdio for local agents, and POST /mcp
// on the HTTP server.
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
