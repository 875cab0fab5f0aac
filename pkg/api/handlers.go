package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

func (s *Server) handleElementsByType(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}
	t, err := bim.ParseElementType(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	elems, err := s.engine.ElementsByType(r.Context(), t)
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryByType, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newElementsResponse(elems))
}

func (s *Server) handleElement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	el, err := s.engine.Element(r.Context(), id)
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryElement, err)
		return
	}
	if el == nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("element %q not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, el)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	elems, err := s.engine.Children(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryChildren, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newElementsResponse(elems))
}

func (s *Server) handleDescendants(w http.ResponseWriter, r *http.Request) {
	maxDepth, err := intParam(r, "max_depth", traversal.Unbounded)
	if err != nil || maxDepth < traversal.Unbounded {
		s.respondError(w, http.StatusBadRequest, "max_depth must be an integer >= -1")
		return
	}

	elems, err := s.engine.Descendants(r.Context(), r.PathValue("id"), maxDepth)
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryDescendants, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newElementsResponse(elems))
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	elems, err := s.engine.Ancestors(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryAncestors, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newElementsResponse(elems))
}

func (s *Server) handleConnectedRooms(w http.ResponseWriter, r *http.Request) {
	elems, err := s.engine.ConnectedRooms(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryConnectedRooms, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newElementsResponse(elems))
}

func (s *Server) handleOpenings(w http.ResponseWriter, r *http.Request) {
	openings, err := s.engine.RoomOpenings(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryRoomOpenings, err)
		return
	}
	s.respondJSON(w, http.StatusOK, openings)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		s.respondError(w, http.StatusBadRequest, "from and to query parameters are required")
		return
	}

	path, err := s.engine.FindPath(r.Context(), from, to)
	if err != nil {
		s.respondQueryError(w, r, traversal.QueryFindPath, err)
		return
	}

	resp := PathResponse{From: from, To: to, Found: len(path) > 0, Path: path}
	if resp.Found {
		resp.Hops = len(path) - 1
	}
	if resp.Found && boolParam(r, "resolve") {
		if resp.Elements, err = s.engine.ResolvePath(r.Context(), path); err != nil {
			s.respondQueryError(w, r, traversal.QueryResolvePath, err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.aggregator.ElementStatistics(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, "statistics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	report, err := s.aggregator.RoomCapacityReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondQueryError(w, r, "capacity", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.aggregator.GraphMetadata(r.Context())
	if err != nil {
		s.respondQueryError(w, r, "metadata", err)
		return
	}
	s.respondJSON(w, http.StatusOK, md)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.aggregator.Info(r.Context(), s.anchors)
	if err != nil {
		s.respondQueryError(w, r, "info", err)
		return
	}

	resp := InfoResponse{GraphInfo: info}
	if s.loader != nil {
		resp.LastLoad = s.loader.Last()
	}
	s.respondJSON(w, http.StatusOK, resp)
}
