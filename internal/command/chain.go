// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"errors"
	"time"

	"github.com/aplane-algo/clive/internal/node"
	"github.com/aplane-algo/clive/internal/wax"
)

// DynamicGlobalProperties fetches fresh dynamic global properties.
type DynamicGlobalProperties = Retrieval[*node.DynamicGlobalProperties, *node.DynamicGlobalProperties, *node.DynamicGlobalProperties]

// NewDynamicGlobalProperties returns a retrieval that bypasses the node cache.
func NewDynamicGlobalProperties(chain Chain) *DynamicGlobalProperties {
	return &DynamicGlobalProperties{
		Name:    "dynamic global properties",
		Harvest: chain.GetDynamicGlobalProperties,
		Sanitize: func(d *node.DynamicGlobalProperties) (*node.DynamicGlobalProperties, error) {
			if d == nil || d.HeadBlockID == "" {
				return nil, errors.New("node returned no head block")
			}
			return d, nil
		},
		Process: identity[*node.DynamicGlobalProperties],
	}
}

// NodeInfo summarises the node state shown by `show node`.
type NodeInfo struct {
	Address           string
	Online            bool
	ChainID           wax.ChainID
	BlockchainVersion string
	HeadBlockNumber   uint32
	HeadBlockTime     wax.Time
	LastIrreversible  uint32
	CurrentWitness    string
	HBDInterestRate   uint16
	RefreshedAt       time.Time
}

// NodeBasicInfo reads the cached basic info of a node.
type NodeBasicInfo = Retrieval[node.BasicInfo, node.BasicInfo, *NodeInfo]

// NewNodeBasicInfo returns a NodeBasicInfo retrieval. address is only echoed.
func NewNodeBasicInfo(chain Chain, address string) *NodeBasicInfo {
	return &NodeBasicInfo{
		Name:    "node basic info",
		Harvest: chain.BasicInfo,
		Sanitize: func(info node.BasicInfo) (node.BasicInfo, error) {
			if info.DGPO == nil || info.Version == nil {
				return info, node.ErrOffline
			}
			return info, nil
		},
		Process: func(info node.BasicInfo) (*NodeInfo, error) {
			return &NodeInfo{
				Address:           address,
				Online:            info.Online,
				ChainID:           chain.ChainID(),
				BlockchainVersion: info.Version.BlockchainVersion,
				HeadBlockNumber:   info.DGPO.HeadBlockNumber,
				HeadBlockTime:     info.DGPO.Time,
				LastIrreversible:  info.DGPO.LastIrreversibleBlockNum,
				CurrentWitness:    info.DGPO.CurrentWitness,
				HBDInterestRate:   info.DGPO.HBDInterestRate,
				RefreshedAt:       info.RefreshedAt,
			}, nil
		},
	}
}
