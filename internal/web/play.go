package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Play is the page a round location resolves to. It follows the game over
// the websocket and reloads when the game moves to another round.
func Play(gameCode, roundID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Party Rounds `, esc(gameCode), `</title>
    <style>`, styles, `</style>
  </head>
  <body data-game="`, esc(gameCode), `" data-round="`, esc(roundID), `">
    <main class="shell">
      <section class="panel">
        <p><span class="stage" id="stage">Loading...</span> <span id="timer"></span></p>
        <h2 id="theme"></h2>
        <p id="prompt"></p>
      </section>
    </main>
    <script>
      const body = document.body;
      const code = body.dataset.game;
      const scheme = location.protocol === "https:" ? "wss://" : "ws://";
      const ws = new WebSocket(scheme + location.host + "/ws/games/" + encodeURIComponent(code));
      ws.onmessage = (event) => {
        const snap = JSON.parse(event.data);
        const game = snap.game;
        if (!game) return;
        if (game.round_id && game.round_id !== body.dataset.round) {
          window.location.href = "/game/" + encodeURIComponent(code) + "/play/" + encodeURIComponent(game.round_id);
          return;
        }
        document.getElementById("stage").textContent = game.current_stage;
        document.getElementById("theme").textContent = game.theme;
        document.getElementById("prompt").textContent = game.prompt;
      };
    </script>
  </body>
</html>
`)
	})
}
