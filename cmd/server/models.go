package main

import (
	"github.com/liamcoop/pdc/metadata"
	"github.com/liamcoop/pdc/pdc"
)

// API request and response models

// CalculateRequest asks for the public domain status of one item.
// Either ItemID (a stored item) or Item (inline metadata) must be given.
type CalculateRequest struct {
	Jurisdiction string                `json:"jurisdiction"`
	ItemID       string                `json:"itemId,omitempty"`
	Item         *metadata.Item        `json:"item,omitempty"`
	Answers      map[string]pdc.Answer `json:"answers,omitempty"`
}

// CalculateResponse reports the verdict with the trace that led to it
type CalculateResponse struct {
	ID             string                 `json:"id"`
	Jurisdiction   string                 `json:"jurisdiction"`
	PublicDomain   pdc.Verdict            `json:"publicDomain"`
	Trace          []pdc.AnsweredQuestion `json:"trace"`
	Metadata       pdc.Metadata           `json:"metadata"`
	EvaluationTime string                 `json:"evaluationTime,omitempty"`
}

// BatchCalculateRequest calculates many items against one jurisdiction.
// Answers apply to every item.
type BatchCalculateRequest struct {
	Jurisdiction string                `json:"jurisdiction"`
	ItemIDs      []string              `json:"itemIds,omitempty"`
	Items        []*metadata.Item      `json:"items,omitempty"`
	Answers      map[string]pdc.Answer `json:"answers,omitempty"`
}

// BatchCalculateResponse holds one result per requested item, stored items first
type BatchCalculateResponse struct {
	Results        []CalculateResponse `json:"results"`
	EvaluationTime string              `json:"evaluationTime"`
}

// JurisdictionResponse summarizes a loaded flow chart
type JurisdictionResponse struct {
	Jurisdiction string `json:"jurisdiction"`
	ChartID      string `json:"chartId"`
	Name         string `json:"name,omitempty"`
	Version      int    `json:"version"`
	Questions    int    `json:"questions"`
}

// JurisdictionsListResponse represents the response for listing jurisdictions
type JurisdictionsListResponse struct {
	Jurisdictions []JurisdictionResponse `json:"jurisdictions"`
}

// UpdateFlowchartResponse reports the version created by a flow chart update
type UpdateFlowchartResponse struct {
	Jurisdiction string `json:"jurisdiction"`
	Version      int    `json:"version"`
	Status       string `json:"status"`
}

// ItemsListResponse represents one page of items
type ItemsListResponse struct {
	Items []*metadata.Item `json:"items"`
	Start int              `json:"start"`
	Max   int              `json:"max"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Problems []string `json:"problems,omitempty"`
}
