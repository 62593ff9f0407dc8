package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/wippyai/spirv-cross/spirv"
	"github.com/wippyai/spirv-cross/translator"
)

type resourceGroup struct {
	name string
	list []spirv.Resource
}

func resourceGroups(r spirv.ShaderResources) []resourceGroup {
	return []resourceGroup{
		{"uniform buffer", r.UniformBuffers},
		{"storage buffer", r.StorageBuffers},
		{"stage input", r.StageInputs},
		{"stage output", r.StageOutputs},
		{"subpass input", r.SubpassInputs},
		{"storage image", r.StorageImages},
		{"sampled image", r.SampledImages},
		{"atomic counter", r.AtomicCounters},
		{"push constant", r.PushConstantBuffers},
		{"separate image", r.SeparateImages},
		{"separate sampler", r.SeparateSamplers},
	}
}

func workgroup(ep spirv.EntryPoint) string {
	if ep.ExecutionModel != spirv.GlCompute && ep.ExecutionModel != spirv.Kernel {
		return "-"
	}
	w := ep.WorkgroupSize
	return fmt.Sprintf("%d x %d x %d", w.X, w.Y, w.Z)
}

func entryPointRows(r *translator.Reflection) pterm.TableData {
	rows := pterm.TableData{{"Name", "Stage", "Workgroup"}}
	for _, ep := range r.EntryPoints {
		rows = append(rows, []string{ep.Name, ep.ExecutionModel.String(), workgroup(ep)})
	}
	return rows
}

func resourceRows(r *translator.Reflection) pterm.TableData {
	rows := pterm.TableData{{"Kind", "ID", "Type", "Base type", "Name"}}
	for _, g := range resourceGroups(r.Resources) {
		for _, res := range g.list {
			rows = append(rows, []string{
				g.name,
				strconv.FormatUint(uint64(res.ID), 10),
				strconv.FormatUint(uint64(res.TypeID), 10),
				strconv.FormatUint(uint64(res.BaseTypeID), 10),
				res.Name,
			})
		}
	}
	return rows
}

func printReflection(input string, r *translator.Reflection) error {
	pterm.DefaultSection.Println(input)

	pterm.DefaultSection.WithLevel(2).Println("Entry points")
	if err := pterm.DefaultTable.WithHasHeader().WithData(entryPointRows(r)).Render(); err != nil {
		return err
	}

	rows := resourceRows(r)
	pterm.DefaultSection.WithLevel(2).Println("Resources")
	if len(rows) == 1 {
		pterm.Info.Println("no resources")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
