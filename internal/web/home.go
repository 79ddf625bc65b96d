package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const styles = `
      body { font-family: system-ui, sans-serif; margin: 0; background: #fdf6e3; color: #1a1a1a; }
      .shell { max-width: 720px; margin: 0 auto; padding: 32px 16px; }
      .panel { background: #fff; border-radius: 12px; padding: 20px; margin-top: 20px; }
      .games li { display: flex; justify-content: space-between; padding: 6px 0; }
      .stage { font-weight: 600; }
`

func Home(games []GameSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Party Rounds</title>
    <style>`, styles, `</style>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <h1>Party Rounds</h1>
        <p>Start a game, share the code, answer the prompt before the clock runs out.</p>
      </header>

      <section class="panel">
        <h2>Create a game</h2>
        <button id="createGame">Create game</button>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <h2>Active games</h2>
`); err != nil {
			return err
		}
		if err := ActiveGamesList(games).Render(ctx, w); err != nil {
			return err
		}
		return write(w, `      </section>
    </main>

    <script>
      const createBtn = document.getElementById("createGame");
      const createResult = document.getElementById("createResult");
      createBtn.addEventListener("click", async () => {
        createResult.textContent = "Creating game...";
        const res = await fetch("/api/games", { method: "POST" });
        const data = await res.json();
        if (!res.ok) {
          createResult.textContent = data.error || "Failed to create game.";
          return;
        }
        window.location.href = data.redirect_to;
      });
    </script>
  </body>
</html>
`)
	})
}

func ActiveGamesList(games []GameSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(games) == 0 {
			return write(w, `        <p class="empty">No games running.</p>
`)
		}
		if err := write(w, `        <ul class="games">
`); err != nil {
			return err
		}
		for _, g := range games {
			if err := write(w,
				`          <li><span class="code">`, esc(g.GameCode), `</span>`,
				`<span class="stage">`, esc(g.Stage), `</span>`,
				`<span>round `, itoa(g.CurrentRound), `</span>`,
				`<span>`, itoa(g.Players), ` players</span></li>
`); err != nil {
				return err
			}
		}
		return write(w, `        </ul>
`)
	})
}
