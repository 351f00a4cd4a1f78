package domain

// AgentCapability — карточка возможностей обнаруженного агента.
// Снимок момента discovery: после сборки реестра не мутирует.
type AgentCapability struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}
