package token_management

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"crev/constants/lipgloss"
	"crev/token_management/contracts"
)

//go:embed model_details.json
var modelDetailsJSON []byte

type details struct {
	MaxTokens                  int     `json:"max_tokens"`
	InputCostPerMillionTokens  float64 `json:"input_cost_per_million_tokens,omitempty"`
	OutputCostPerMillionTokens float64 `json:"output_cost_per_million_tokens,omitempty"`
	Mode                       string  `json:"mode"`
}

type modelTable struct {
	ModelDetails map[string]details `json:"models"`
}

// tokenManager accumulates per-session token usage.
type tokenManager struct {
	mu              sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

// NewTokenManager creates a new token manager.
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

// CalculateCost prices the given usage with the embedded model table.
// Unknown models cost zero.
func (tm *tokenManager) CalculateCost(modelName string, inputToken int, outputToken int) float64 {
	var table modelTable
	if err := json.Unmarshal(modelDetailsJSON, &table); err != nil {
		log.Printf("Warning: failed to parse model details: %v", err)
		return 0
	}
	d, ok := table.ModelDetails[modelName]
	if !ok {
		return 0
	}
	return float64(inputToken)*d.InputCostPerMillionTokens/1e6 +
		float64(outputToken)*d.OutputCostPerMillionTokens/1e6
}

func (tm *tokenManager) DisplayTokens(chatModel string) {
	total, input, output := tm.GetCurrentTokenUsage()
	cost := tm.CalculateCost(chatModel, input, output)

	tokenInfo := fmt.Sprintf("Token Used: %d - Cost: %.6f $ - Chat Model: %s", total, cost, chatModel)
	fmt.Println(lipgloss.BoxStyle.Render(tokenInfo))
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}
