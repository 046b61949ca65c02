// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/jllopis/bringacrew/pkg/capability"
	"github.com/jllopis/bringacrew/pkg/errors"
)

// PromptData is the input of system prompt templates.
type PromptData struct {
	Name  string
	Intro string
	// Capabilities is the registry listing, one "- name: description" per line.
	Capabilities string
	// Names lists capability names in registration order.
	Names []string
}

func newPromptData(a *Agent) PromptData {
	return PromptData{
		Name:         a.name,
		Intro:        a.intro,
		Capabilities: a.registry.RenderForPrompt(),
		Names:        a.registry.Names(),
	}
}

// ParsePromptTemplate parses a system prompt template with the sprig
// function map available.
func ParsePromptTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid prompt template", err).
			WithContext("template", name)
	}
	return tmpl, nil
}

// RenderPrompt executes tmpl with data.
func RenderPrompt(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.New(errors.CodeInvalidInput, "render prompt template", err).
			WithContext("template", tmpl.Name())
	}
	return strings.TrimSpace(buf.String()), nil
}

// defaultTemplateFor picks the orchestrator prompt when every capability is
// an agent and the action prompt otherwise.
func defaultTemplateFor(r *capability.Registry) *template.Template {
	caps := r.All()
	if len(caps) == 0 {
		return actionTemplate
	}
	for _, c := range caps {
		if _, ok := c.(*Agent); !ok {
			return actionTemplate
		}
	}
	return orchestratorTemplate
}

var (
	actionTemplate       = template.Must(ParsePromptTemplate("action", ActionPrompt))
	orchestratorTemplate = template.Must(ParsePromptTemplate("orchestrator", OrchestratorPrompt))
)

// ActionPrompt instructs an agent whose capabilities are leaf handlers.
const ActionPrompt = `
You are {{ .Name }}, an AI agent following the ReAct framework: you **Think**, **Act** and process **Observations** in response to a given **Question**.
{{- with .Intro }}
Your role: {{ . }}
{{- end }}
While thinking you analyse the question, break it into subquestions and decide which action to take. You then act by performing that action and pause to observe its result. You repeat the cycle until you have enough information to answer the original question.

Always follow this structured format:
Question: [the user's question]
Think: [your reasoning about how to answer using the available actions only]
Action: [action]: [arguments]
PAUSE

After receiving an **Observation**, continue the cycle:
Observation: [result from the previous action]
Think: [decide on the next step]
If another action is needed, emit it and wait for the new observation:
Action: [action]: [arguments]
PAUSE
Otherwise, when the final answer is ready, return it:
Answer: [a friendly response that answers the question]

Rules:
1. Never answer a question directly; always go through the Think, Action, PAUSE cycle.
2. Never generate output after "PAUSE".
3. Observations are provided in response to an action; never invent them.
4. Emit at most one Action line per reply.
5. These are the only available actions:
{{ .Capabilities | indent 1 }}
{{- if .Names }}

Example:
Question: [a question that needs {{ first .Names }}]
Think: To solve this I need the {{ first .Names }} action.
Action: {{ first .Names }}: [arguments]
PAUSE
{{- end }}
`

// OrchestratorPrompt instructs an agent whose capabilities are other agents.
const OrchestratorPrompt = `
You are {{ .Name }}, an AI orchestration agent following the ReAct framework: you **Think**, **Act** and process **Observations** in response to a given **Question**.
{{- with .Intro }}
Your role: {{ . }}
{{- end }}
While thinking you analyse the question, break it into subquestions and decide which agent to ask. You then act by calling that agent and pause to observe its reply. You repeat the cycle until you have enough information to answer the original question.

Always follow this structured format:
Question: [the user's question]
Think: [your reasoning about how to answer using the available agents only]
Action: [agent]: [subquestion]
PAUSE

After receiving an **Observation**, continue the cycle:
Observation: [reply from the agent]
Think: [decide on the next step]
If another agent must be asked, emit the action and wait for the new observation:
Action: [agent]: [subquestion]
PAUSE
Otherwise, when the final answer is ready, return it:
Answer: [a friendly response that answers the question]

Rules:
1. Never answer a question directly; always go through the Think, Action, PAUSE cycle.
2. Never generate output after "PAUSE".
3. Observations are provided in response to an action; never invent them.
4. Ask one agent per reply, with a self-contained subquestion.
5. These are the only available agents:
{{ .Capabilities | indent 1 }}

Example:
Question: I would like to book a room for 4 people next Tuesday morning, including lunch.
Think: I first need to know whether a room is available, so I ask {{ first .Names }}.
Action: {{ first .Names }}: check availability for a room for 4 people next Tuesday in the morning.
PAUSE
`
