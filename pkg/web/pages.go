package web

import "html"

var loginHTML = loginPage("")

func loginPage(errMsg string) string {
	errBlock := ""
	if errMsg != "" {
		errBlock = `<div class="login-error" id="error-message">` + html.EscapeString(errMsg) + `</div>`
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>PicoChat - Login</title>
<style>
:root{
  --bg-primary:#0f1117;--bg-secondary:#161822;--bg-input:#12141d;
  --border:#252836;--border-focus:#6c5ce7;--accent:#6c5ce7;--accent-hover:#5a4bd1;
  --text-primary:#e8e6f0;--text-secondary:#8b8a97;--text-muted:#5c5b66;
  --error:#f87171;--error-bg:rgba(248,113,113,.08);
}
*{box-sizing:border-box;margin:0;padding:0}
html,body{height:100%}
body{
  font-family:system-ui,-apple-system,sans-serif;background:var(--bg-primary);
  color:var(--text-primary);display:flex;align-items:center;justify-content:center;
}
.login-card{width:100%;max-width:380px;padding:40px 32px;background:var(--bg-secondary);border:1px solid var(--border);border-radius:16px}
.login-card h1{font-size:20px;font-weight:600;text-align:center;margin-bottom:4px}
.login-card .sub{font-size:13px;color:var(--text-muted);text-align:center;margin-bottom:28px}
.login-error{padding:10px 14px;margin-bottom:20px;background:var(--error-bg);border:1px solid rgba(248,113,113,.2);border-radius:8px;font-size:13px;color:var(--error)}
.field{margin-bottom:16px}
.field label{display:block;font-size:13px;font-weight:500;color:var(--text-secondary);margin-bottom:6px}
.field input{width:100%;padding:11px 14px;background:var(--bg-input);border:1px solid var(--border);border-radius:8px;color:var(--text-primary);font-size:14px;outline:none}
.field input:focus{border-color:var(--border-focus)}
.login-btn{width:100%;padding:12px;margin-top:8px;background:var(--accent);color:#fff;border:none;border-radius:10px;font-size:14px;font-weight:600;cursor:pointer}
.login-btn:hover{background:var(--accent-hover)}
</style>
</head>
<body>
<form class="login-card" id="login-form" method="POST" action="/login">
  <h1>PicoChat</h1>
  <p class="sub">Sign in to start chatting</p>
  ` + errBlock + `
  <div class="field"><label for="username">Username</label><input id="username" name="username" type="text" autocomplete="username" required autofocus></div>
  <div class="field"><label for="password">Password</label><input id="password" name="password" type="password" autocomplete="current-password" required></div>
  <button class="login-btn" type="submit">Sign in</button>
</form>
</body>
</html>`
}

var chatHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>PicoChat</title>
<style>
:root{
  --bg-primary:#0f1117;--bg-secondary:#161822;--bg-tertiary:#1c1f2e;--bg-input:#12141d;
  --border:#252836;--accent:#6c5ce7;--accent-hover:#5a4bd1;
  --text-primary:#e8e6f0;--text-secondary:#8b8a97;--text-muted:#5c5b66;
}
*{box-sizing:border-box;margin:0;padding:0}
html,body{height:100%}
body{font-family:system-ui,-apple-system,sans-serif;background:var(--bg-primary);color:var(--text-primary);display:flex;overflow:hidden}
.sidebar{width:260px;background:var(--bg-secondary);border-right:1px solid var(--border);display:flex;flex-direction:column;gap:8px;padding:16px}
.sidebar button,.upload-label{background:var(--bg-tertiary);border:1px solid var(--border);border-radius:8px;color:var(--text-primary);padding:8px 12px;font-size:13px;cursor:pointer;text-align:left}
.sidebar button:hover,.upload-label:hover{border-color:var(--accent)}
#file-upload{display:none}
.sidebar-history{display:none;border:1px solid var(--border);border-radius:8px;padding:8px;max-height:240px;overflow-y:auto}
.sidebar-history.show{display:block}
.history-list li,.document-list li{list-style:none;font-size:13px;padding:6px 8px;border-radius:6px;color:var(--text-secondary);overflow:hidden;text-overflow:ellipsis;white-space:nowrap}
.history-list li{cursor:pointer}
.history-list li:hover{background:var(--bg-tertiary);color:var(--text-primary)}
.document-list{flex:1;overflow-y:auto}
.profile-icon{margin-top:auto;width:36px;height:36px;border-radius:50%;background:var(--accent);display:flex;align-items:center;justify-content:center;cursor:pointer;font-weight:600}
.main{flex:1;display:flex;flex-direction:column}
.header{padding:14px 24px;border-bottom:1px solid var(--border);display:flex;align-items:center}
.header h1{font-size:16px;font-weight:600}
.header a{margin-left:auto;color:var(--text-secondary);font-size:12px;text-decoration:none;border:1px solid var(--border);border-radius:8px;padding:6px 12px}
.chatbox{flex:1;overflow-y:auto;padding:24px;display:flex;flex-direction:column;gap:12px}
.chatbox li{list-style:none;display:flex}
.chatbox li.outgoing{justify-content:flex-end}
.chatbox li p,.chatbox li div.bubble{max-width:72%;padding:10px 14px;border-radius:14px;font-size:14px;line-height:1.6}
.chatbox li.outgoing .bubble{background:var(--accent);color:#fff}
.chatbox li.incoming .bubble{background:var(--bg-tertiary);border:1px solid var(--border)}
.chat-input{display:flex;gap:10px;padding:16px 24px;border-top:1px solid var(--border);background:var(--bg-secondary)}
.chat-input textarea{flex:1;resize:none;background:var(--bg-input);border:1px solid var(--border);border-radius:10px;color:var(--text-primary);padding:10px 14px;font-size:14px;font-family:inherit;outline:none;max-height:120px}
#send-btn{background:var(--accent);color:#fff;border:none;border-radius:10px;padding:0 18px;cursor:pointer}
#send-btn:hover{background:var(--accent-hover)}
.popup{position:fixed;inset:0;background:rgba(0,0,0,.5);display:none;align-items:center;justify-content:center}
.popup.show-popup{display:flex}
.popup-content{background:var(--bg-secondary);border:1px solid var(--border);border-radius:14px;padding:24px;min-width:280px;position:relative}
.popup-content .close-btn{position:absolute;top:8px;right:12px;cursor:pointer;color:var(--text-muted);font-size:18px}
</style>
</head>
<body>
<aside class="sidebar">
  <button class="new-chat-btn">＋ New chat</button>
  <button class="new-folder-btn">📁 New folder</button>
  <button class="history-btn">🕘 History</button>
  <div class="sidebar-history"><ul class="history-list"></ul></div>
  <label class="upload-label" for="file-upload">📎 Upload files</label>
  <input type="file" id="file-upload" multiple>
  <ul class="document-list"></ul>
  <div class="profile-icon" title="Profile">U</div>
</aside>
<section class="main">
  <div class="header"><h1>PicoChat</h1><a href="/logout">Sign out</a></div>
  <ul class="chatbox"></ul>
  <div class="chat-input">
    <textarea rows="1" placeholder="Enter a message..." required></textarea>
    <button id="send-btn">Send</button>
  </div>
</section>
<div class="popup" id="profile-popup">
  <div class="popup-content">
    <span class="close-btn">&times;</span>
    <h3>Profile</h3>
    <p style="margin-top:8px;color:var(--text-secondary);font-size:13px">Signed in</p>
  </div>
</div>
<script>
const $=s=>document.querySelector(s);
const chatbox=$(".chatbox"),chatInput=$(".chat-input textarea"),historyList=$(".history-list"),
      sidebarHistory=$(".sidebar-history"),documentList=$(".document-list"),profilePopup=$("#profile-popup");
async function api(method,path,body){
  const r=await fetch(path,{method,headers:{"Content-Type":"application/json"},body:body?JSON.stringify(body):undefined});
  if(r.status===401){window.location.href="/login";throw new Error("unauthorized")}
  return r.json();
}
function chatLi(m){
  const li=document.createElement("li");li.className="chat "+m.class;
  const b=document.createElement("div");b.className="bubble";b.innerHTML=m.html;
  li.appendChild(b);return li;
}
function renderMessages(ms){chatbox.innerHTML="";ms.forEach(m=>chatbox.appendChild(chatLi(m)));chatbox.scrollTo(0,chatbox.scrollHeight)}
function appendMessage(m){chatbox.appendChild(chatLi(m));chatbox.scrollTo(0,chatbox.scrollHeight)}
function renderHistory(entries){
  historyList.innerHTML="";
  entries.forEach(e=>{
    const li=document.createElement("li");li.textContent=e.name;li.dataset.index=e.index;
    li.onclick=async()=>{const d=await api("POST","/api/history/"+e.index+"/load");applyState(d.state)};
    historyList.appendChild(li);
  });
}
function renderDocuments(docs){
  documentList.innerHTML="";
  docs.forEach(d=>{const li=document.createElement("li");li.textContent=d.label;li.title=d.human_size||"";documentList.appendChild(li)});
}
function applyState(s){
  renderMessages(s.messages);renderHistory(s.history);renderDocuments(s.documents);
  sidebarHistory.classList.toggle("show",s.history_visible);
  profilePopup.classList.toggle("show-popup",s.profile_visible);
}
async function send(){
  const text=chatInput.value.trim();if(!text)return;
  chatInput.value="";
  await api("POST","/api/chat/send",{message:text});
}
function connect(){
  const ws=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+"/ws");
  ws.onmessage=e=>{const f=JSON.parse(e.data);if(f.type==="reset")renderMessages(f.messages||[]);else if(f.message)appendMessage(f.message)};
  ws.onclose=()=>setTimeout(connect,2000);
}
$("#send-btn").onclick=send;
chatInput.onkeydown=e=>{if(e.key==="Enter"&&!e.shiftKey){e.preventDefault();send()}};
$(".new-chat-btn").onclick=async()=>{const d=await api("POST","/api/chat/new");applyState(d.state);chatInput.value=""};
$(".new-folder-btn").onclick=async()=>{
  const name=prompt("Enter a name for the new folder:");
  if(!name||!name.trim())return;
  await api("POST","/api/folders",{name});
  applyState(await api("GET","/api/state"));
};
$(".history-btn").onclick=async()=>{
  const d=await api("POST","/api/history/toggle");
  sidebarHistory.classList.toggle("show",d.visible);
  if(d.visible)renderHistory(d.history);
};
$("#file-upload").onchange=async e=>{
  const files=[...e.target.files].map(f=>({name:f.name,size:f.size}));
  if(!files.length)return;
  await api("POST","/api/files",{files});
  e.target.value="";
  applyState(await api("GET","/api/state"));
};
$(".profile-icon").onclick=async()=>{await api("POST","/api/profile/show");profilePopup.classList.add("show-popup")};
$(".popup-content .close-btn").onclick=async()=>{await api("POST","/api/profile/hide");profilePopup.classList.remove("show-popup")};
api("GET","/api/state").then(applyState);
connect();
</script>
</body>
</html>`
