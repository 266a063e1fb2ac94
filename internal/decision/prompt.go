package decision

// actionInstruction tells the model how to pick the next action and the exact
// JSON shape to answer with. The engine parses the reply as free text; no
// schema-enforcing response mode is assumed.
const actionInstruction = `Analyze the GitHub-related query and select the best action.
Available actions:
1. search - Find repositories (requires 'query')
2. read_file - Read a specific file (requires 'repo_name', 'file_path')
3. clone - Clone repository (requires 'clone_url')
4. repo_tree - Get complete repository structure (requires 'repo_name')
5. list_directory - List directory contents (requires 'repo_name', 'path' [optional])
6. chart - Generate a Mermaid flowchart for the repository (requires 'repo_name')
7. self_solve - Tasks that can be solved without API calls (requires 'content')

RESPONSE FORMAT: Respond with valid JSON in this exact format:
{
    "action": "search|read_file|clone|repo_tree|list_directory|chart|self_solve",
    "parameters": {
        // Action-specific parameters
    },
    "reason": "explanation",
    "done": "True|False",
    "summary": "if done=True, progress summary"
}`
