// Package prompt renders the fixed prompt templates used by the planner and
// the caller, and stores the per-scenario demonstrations.
package prompt

import (
	"strings"
	"text/template"

	"github.com/m4xw311/restgpt/errors"
)

// Transcript labels. The planner scratchpad, the demonstrations and the stop
// sequences all depend on these exact strings.
const (
	StepLabel        = "Plan step"
	ObservationLabel = "API response:"
)

const plannerTemplate = `You are a planner that plans a sequence of RESTful API calls to assist with user queries against an API.
Another API caller will receive your plan, call the corresponding APIs and give you the result in natural language.
The API caller also has filtering and sorting functions to post-process the response of APIs. If you think the API response should be post-processed, just tell the API caller to do so.
If you think you have got the final answer, do not make other API calls and just output the answer immediately. For example, if the query is to search for a person, you should just return the id and name of the person.

----

Here are the name and description of available APIs.
Do not use APIs that are not listed here.

{{.Endpoints}}
----

Starting below, you should follow this format:

Background: background information which you can use to execute the plan, e.g., the id of a person, the ids of tracks by Faye Wong. In most cases you must use the background information instead of requesting it again.
User query: the query a user wants help with related to the API
Plan step 1: the first API call you want to make, in natural language. It may carry conditions such as filtering or sorting, e.g. "get the top-1 most popular movie". If the user query contains a filter condition such as the latest, the most popular or the highest rated, the plan step must contain it too. If no API call is needed, output "No API call needed." followed by the final answer.
API response: the response of API call 1
... (Plan step n and API response can repeat N times, but most queries can be solved in 1-2 steps)
Thought: I am finished executing a plan and have the information the user asked for
Final Answer: the final answer to the user query

{{.Examples}}

Note: if an API path contains "{...}", it is a variable and must be replaced with the appropriate value. For example, if the path is "/users/{user_id}/tweets", replace "{user_id}" with the user id. In most cases the id is in the background or in an earlier API response; copy it faithfully. If it is not there, never invent one; plan another API call to look it up first. For example, get the user_id via "GET /me" before calling "/users/{user_id}/playlists".

Begin!

Background: {{.Background}}
User query: {{.Query}}
{{.Scratchpad}}` + StepLabel + ` {{.NextStep}}:`

const callerTemplate = `You are an agent that receives one step of an API plan together with the API documentation, and must turn it into exactly one HTTP request.
When interacting with API objects, extract ids for inputs to other API calls, but return ids and names in outputs.

Here is the documentation of the API:
Base url: {{.BaseURL}}
{{.Docs}}
If an API path contains "{...}", it is a variable: replace it with the actual value, taken from the background or an earlier API response. "{" and "}" must not appear in the final url.

Use one of the HTTP methods GET, POST, PUT, PATCH, DELETE, as the documentation requires.
The input must be a JSON object with these keys:
- "url": the url to call, relative to the base url or absolute
- "params" (optional): query parameters, or values for path variables
- "data" (optional): the JSON request body for POST, PUT and PATCH
- "description": what this call does, in one sentence
- "output_instructions": what information to extract from the response
- "filter" (optional): a GJSON path selecting the relevant part of the response, e.g. "tracks.items.#.name"
- "sort" (optional): {"key": "popularity", "desc": true, "limit": 5} to sort an array response

If no API call is needed to carry out the step, output "No API call needed." and a one-sentence explanation instead.

Follow this format exactly:

Background: background information
Plan step: the step to execute
Operation: the HTTP method
Input: the JSON input

Begin!

Background: {{.Background}}
{{.History}}Plan step: {{.Step}}
Operation:`

const parserTemplate = `Here is an API response in JSON format:

{{.Response}}

The API call was made to {{.Description}}.
Extract the information requested below and answer in one or two plain sentences. Always include ids together with names when the response has them.

Instruction: {{.Instructions}}
Answer:`

var (
	plannerTmpl = template.Must(template.New("planner").Parse(plannerTemplate))
	callerTmpl  = template.Must(template.New("caller").Parse(callerTemplate))
	parserTmpl  = template.Must(template.New("parser").Parse(parserTemplate))
)

// PlannerParams are the variables of the planner prompt.
type PlannerParams struct {
	Endpoints  string
	Examples   string
	Background string
	Query      string
	Scratchpad string
	NextStep   int
}

// CallerParams are the variables of the caller prompt.
type CallerParams struct {
	BaseURL    string
	Docs       string
	Background string
	History    string
	Step       string
}

// ParserParams are the variables of the response-summary prompt.
type ParserParams struct {
	Response     string
	Description  string
	Instructions string
}

func Planner(p PlannerParams) (string, error) {
	if p.NextStep <= 0 {
		p.NextStep = 1
	}
	return render(plannerTmpl, p)
}

func Caller(p CallerParams) (string, error) {
	return render(callerTmpl, p)
}

func Parser(p ParserParams) (string, error) {
	return render(parserTmpl, p)
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s prompt", t.Name())
	}
	return b.String(), nil
}
