package service

import "github.com/longbo188/workshop-sub000/internal/dto"

// ToResponse 转换为对外响应
func (o *EfficiencyOutcome) ToResponse() dto.EfficiencyResponse {
	return dto.NewEfficiencyResponse(o.Result, o.Confirmed, o.ConfirmedAt)
}

// ToResponse 转换为批量核算响应，失败项仅保留错误文本
func (r *RunReport) ToResponse() dto.RunEfficiencyResponse {
	resp := dto.RunEfficiencyResponse{
		Results:        make([]dto.EfficiencyResponse, 0, len(r.Results)),
		Failures:       make([]dto.PairFailureResponse, 0, len(r.Failures)),
		NewlyConfirmed: r.NewlyConfirmed,
	}
	for i := range r.Results {
		resp.Results = append(resp.Results, r.Results[i].ToResponse())
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, dto.PairFailureResponse{
			TaskID:   f.TaskID,
			PhaseKey: f.PhaseKey,
			Error:    f.Err.Error(),
		})
	}
	return resp
}
