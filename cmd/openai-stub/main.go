package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
)

const (
	plannerSystem = "You are an all-capable assistant"
	slotsMarker   = "## TemplateParamsJson\n```"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		sys := strings.TrimSpace(req.Messages[0].Content)
		user := req.Messages[len(req.Messages)-1].Content
		var content string
		switch {
		case sys == plannerSystem:
			content = outlineFor(topicFrom(user))
		case strings.Contains(user, slotsMarker):
			content = slotsFor(user)
		default:
			http.Error(w, "unexpected prompt", http.StatusBadRequest)
			return
		}
		if req.Stream {
			writeStream(w, content)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func topicFrom(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if t, ok := strings.CutPrefix(line, "Topic: "); ok {
			return strings.TrimSpace(t)
		}
	}
	return "System Test"
}

func outlineFor(topic string) string {
	type sub struct {
		SubTitle string `json:"sub_title"`
		Desc     string `json:"desc"`
		Content  string `json:"content"`
	}
	type section struct {
		Title string `json:"title"`
		Pages []sub  `json:"pages"`
	}
	titles := []string{"Background", "Core concepts", "Next steps"}
	o := struct {
		Topic string    `json:"topic"`
		Pages []section `json:"pages"`
	}{Topic: topic}
	for _, t := range titles {
		o.Pages = append(o.Pages, section{Title: t, Pages: []sub{
			{SubTitle: t + " overview", Desc: "What " + strings.ToLower(t) + " covers", Content: topic + ": " + t},
		}})
	}
	b, _ := json.Marshal(o)
	return string(b)
}

// slotsFor answers a slot request with a fenced JSON block that fills every
// requested key.
func slotsFor(prompt string) string {
	rest := prompt[strings.Index(prompt, slotsMarker)+len(slotsMarker):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "no keys"
	}
	var keys map[string]string
	if err := json.Unmarshal([]byte(rest[:end]), &keys); err != nil {
		return "bad keys"
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	for i, k := range names {
		keys[k] = fmt.Sprintf("%s %d", strings.ReplaceAll(k, "_", " "), i+1)
	}
	b, _ := json.MarshalIndent(keys, "", "  ")
	return "```json\n" + string(b) + "\n```"
}

func writeStream(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for len(content) > 0 {
		n := 24
		if n > len(content) {
			n = len(content)
		}
		chunk, _ := json.Marshal(map[string]any{
			"object":  "chat.completion.chunk",
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": content[:n]}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		if flusher != nil {
			flusher.Flush()
		}
		content = content[n:]
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}
