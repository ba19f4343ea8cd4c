package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Draw Royale</title>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Draw Royale</span>
        <h1>One artist. Everyone guesses.</h1>
        <p>Open a room, share the invite code, and race the clock.</p>
      </header>

      <section class="panel">
        <h2>Create a room</h2>
        <form id="createForm">
          <input name="name" placeholder="Room name" required/>
          <input name="host_name" placeholder="Your name" autocomplete="name" required/>
          <button type="submit" class="primary">Create room</button>
        </form>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <h2>Join a room</h2>
        <form id="joinForm">
          <input name="code" placeholder="Invite code" autocomplete="off" required/>
          <input name="name" placeholder="Display name" autocomplete="name" required/>
          <button type="submit" class="secondary">Join room</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>
    </main>

    <script>
      const userID = localStorage.getItem("draw_royale_user") || crypto.randomUUID();
      localStorage.setItem("draw_royale_user", userID);

      async function post(path, body) {
        const res = await fetch(path, {
          method: "POST",
          headers: { "Content-Type": "application/json", "X-User-ID": userID },
          body: JSON.stringify(body)
        });
        return { ok: res.ok, data: await res.json() };
      }

      const createForm = document.getElementById("createForm");
      const createResult = document.getElementById("createResult");
      createForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        createResult.textContent = "Creating room...";
        const { ok, data } = await post("/api/rooms", {
          name: createForm.elements.name.value.trim(),
          host_name: createForm.elements.host_name.value.trim()
        });
        if (!ok) {
          createResult.textContent = data.error || "Failed to create room.";
          return;
        }
        createResult.textContent = "Room created. Invite code: " + data.invite_code;
      });

      const joinForm = document.getElementById("joinForm");
      const joinResult = document.getElementById("joinResult");
      joinForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        joinResult.textContent = "Joining room...";
        const code = joinForm.elements.code.value.trim().toUpperCase();
        const { ok, data } = await post("/api/invite-codes/" + encodeURIComponent(code) + "/join", {
          name: joinForm.elements.name.value.trim()
        });
        if (!ok) {
          joinResult.textContent = data.error || "Failed to join room.";
          return;
        }
        joinResult.textContent = "Joined " + data.room.name + " as " + data.player.name + ".";
      });
    </script>
  </body>
</html>
`)
		return err
	})
}
