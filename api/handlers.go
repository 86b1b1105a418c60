package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/bitrent/bitrent-ico/core/code"
	"github.com/bitrent/bitrent-ico/core/types"
	"github.com/bitrent/bitrent-ico/helpers"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Response is the envelope of every API reply
type Response struct {
	Code   uint32      `json:"code"`
	Result interface{} `json:"result,omitempty"`
	Log    string      `json:"log,omitempty"`
	Info   interface{} `json:"info,omitempty"`
}

func (s *Service) respond(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, Response{Code: code.OK, Result: result})
}

func (s *Service) respondError(c *gin.Context, err error) {
	var e *code.Error
	if errors.As(err, &e) {
		resp := Response{Code: e.Code(), Log: e.Error()}
		if info := e.Info(); info != "" {
			resp.Info = json.RawMessage(info)
		}

		c.JSON(http.StatusBadRequest, resp)
		return
	}

	s.logger.Error("request failed", "err", err)
	c.JSON(http.StatusInternalServerError, Response{Code: code.InvalidParameter, Log: err.Error()})
}

// commit persists the mutation performed by the calling handler
func (s *Service) commit(c *gin.Context) bool {
	if _, _, err := s.state.Commit(); err != nil {
		s.logger.Error("commit failed", "err", err)
		c.JSON(http.StatusInternalServerError, Response{Code: code.InvariantViolation, Log: err.Error()})
		return false
	}

	s.metrics.commits.Inc()

	return true
}

func parseAddress(s string) (types.Address, error) {
	if !types.IsHexAddress(s) {
		return types.Address{}, code.NewInvalidParameter("invalid address " + strconv.Quote(s))
	}

	return types.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	if !helpers.IsValidBigInt(s) {
		return nil, code.NewInvalidParameter("invalid amount " + strconv.Quote(s))
	}

	return helpers.StringToBigInt(s), nil
}

func (s *Service) getStatus(c *gin.Context) {
	s.respond(c, gin.H{
		"height":           s.state.Height(),
		"status":           s.state.Sale.Status().String(),
		"presale_finished": s.state.Sale.PresaleFinished(),
		"wei_raised":       s.state.Sale.WeiRaised().String(),
		"tokens_sold":      s.state.Sale.TokensSold().String(),
		"deposit_total":    s.state.Deposit.Total().String(),
	})
}

func (s *Service) getPrice(c *gin.Context) {
	s.respond(c, gin.H{
		"one_token_in_wei": s.state.Pricing.OneTokenInWei().String(),
	})
}

type priceRequest struct {
	Caller string `json:"caller" binding:"required"`
	Price  string `json:"price" binding:"required"`
}

func (s *Service) postSetPrice(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.state.Pricing.SetOneTokenInWei(caller, price); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{
			"one_token_in_wei": s.state.Pricing.OneTokenInWei().String(),
		})
	}
}

func (s *Service) getEvents(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 32)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid height"))
		return
	}

	s.respond(c, s.state.Events().LoadEvents(uint32(height)))
}

func (s *Service) getDonors(c *gin.Context) {
	donors := s.state.Deposit.Donors()
	result := make([]gin.H, 0, len(donors))
	for _, donor := range donors {
		result = append(result, gin.H{
			"address": donor.String(),
			"value":   s.state.Deposit.DepositOf(donor).String(),
		})
	}

	s.respond(c, gin.H{
		"total":  s.state.Deposit.Total().String(),
		"donors": result,
	})
}

func (s *Service) getDeposit(c *gin.Context) {
	address, err := parseAddress(c.Param("address"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.respond(c, gin.H{
		"address": address.String(),
		"value":   s.state.Deposit.DepositOf(address).String(),
	})
}

func (s *Service) getVaultBalance(c *gin.Context) {
	id, err := types.ParseAccountID(c.Param("id"))
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	if !s.state.Vault.IsRegistered(id) {
		s.respondError(c, code.NewUnknownAccount(id.String()))
		return
	}

	s.respond(c, gin.H{
		"id":      id.String(),
		"balance": s.state.Vault.GetBalance(id).String(),
	})
}

func (s *Service) getWalletOwners(c *gin.Context) {
	owners := s.state.Wallet.Owners()
	result := make([]gin.H, 0, len(owners))
	for _, owner := range owners {
		result = append(result, gin.H{
			"address": owner.Address.String(),
			"admin":   owner.Admin,
		})
	}

	s.respond(c, gin.H{
		"owners":   result,
		"required": s.state.Wallet.Required(),
		"paused":   s.state.Wallet.IsPaused(),
	})
}

func (s *Service) getWalletTransaction(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid transaction id"))
		return
	}

	tx := s.state.Wallet.GetTransaction(id)
	if tx == nil {
		s.respondError(c, code.NewNotFound("transaction "+strconv.FormatUint(id, 10)))
		return
	}

	confirmations := make([]string, 0, len(tx.Confirmations))
	for _, a := range tx.Confirmations {
		confirmations = append(confirmations, a.String())
	}

	s.respond(c, gin.H{
		"id":            tx.ID,
		"destination":   tx.Destination.String(),
		"value":         tx.Amount().String(),
		"executed":      tx.Executed,
		"confirmations": confirmations,
	})
}

type donationRequest struct {
	Donor string `json:"donor" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (s *Service) postDonation(c *gin.Context) {
	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	donor, err := parseAddress(req.Donor)
	if err != nil {
		s.respondError(c, err)
		return
	}

	value, err := parseAmount(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.state.Deposit.Receive(donor, value); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{"total": s.state.Deposit.Total().String()})
	}
}

type callerRequest struct {
	Caller string `json:"caller" binding:"required"`
}

func (s *Service) phaseHandler(c *gin.Context, op func(caller types.Address) error) {
	var req callerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := op(caller); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{"status": s.state.Sale.Status().String()})
	}
}

func (s *Service) postStartPresale(c *gin.Context) {
	s.phaseHandler(c, s.crowdsale.StartPresale)
}

func (s *Service) postFinalizePresale(c *gin.Context) {
	s.phaseHandler(c, s.crowdsale.FinalizePresale)
}

func (s *Service) postStartIco(c *gin.Context) {
	s.phaseHandler(c, s.crowdsale.StartIco)
}

func (s *Service) postFinalizeIco(c *gin.Context) {
	s.phaseHandler(c, s.crowdsale.FinalizeIco)
}

type investRequest struct {
	Investor string `json:"investor" binding:"required"`
	Value    string `json:"value" binding:"required"`
}

func (s *Service) postInvest(c *gin.Context) {
	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	investor, err := parseAddress(req.Investor)
	if err != nil {
		s.respondError(c, err)
		return
	}

	value, err := parseAmount(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.crowdsale.Invest(investor, value); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{
			"invested": s.state.Sale.InvestedBy(investor).String(),
			"balance":  s.state.Token.GetBalance(investor).String(),
		})
	}
}

type allocateRequest struct {
	Caller    string `json:"caller" binding:"required"`
	To        string `json:"to" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

func (s *Service) postAllocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	to, err := parseAddress(req.To)
	if err != nil {
		s.respondError(c, err)
		return
	}

	id, err := types.ParseAccountID(req.AccountID)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	wei, err := parseAmount(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.crowdsale.Allocate(caller, to, id, wei); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{"balance": s.state.Token.GetBalance(to).String()})
	}
}

type walletSubmitRequest struct {
	Caller      string `json:"caller" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Value       string `json:"value" binding:"required"`
	Data        []byte `json:"data,omitempty"`
}

func (s *Service) postWalletSubmit(c *gin.Context) {
	var req walletSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	destination, err := parseAddress(req.Destination)
	if err != nil {
		s.respondError(c, err)
		return
	}

	value, err := parseAmount(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	id, err := s.state.Wallet.SubmitTransaction(caller, destination, value, req.Data)
	if err != nil {
		// a failed execution still recorded the submission, persist it
		if code.CodeOf(err) == code.ExecutionFailed && !s.commit(c) {
			return
		}

		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{"transaction_id": id})
	}
}

type walletTxRequest struct {
	Caller string `json:"caller" binding:"required"`
	ID     uint64 `json:"id"`
}

func (s *Service) walletTxHandler(c *gin.Context, op func(caller types.Address, id uint64) error) {
	var req walletTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := op(caller, req.ID); err != nil {
		// a failed execution still recorded the confirmation, persist it
		if code.CodeOf(err) == code.ExecutionFailed && !s.commit(c) {
			return
		}

		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		tx := s.state.Wallet.GetTransaction(req.ID)
		s.respond(c, gin.H{
			"transaction_id": req.ID,
			"executed":       tx != nil && tx.Executed,
		})
	}
}

func (s *Service) postWalletConfirm(c *gin.Context) {
	s.walletTxHandler(c, s.state.Wallet.ConfirmTransaction)
}

func (s *Service) postWalletRevoke(c *gin.Context) {
	s.walletTxHandler(c, s.state.Wallet.RevokeConfirmation)
}

func (s *Service) postWalletExecute(c *gin.Context) {
	s.walletTxHandler(c, s.state.Wallet.ExecuteTransaction)
}

type addTokensRequest struct {
	Caller    string `json:"caller" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

func (s *Service) postAddTokens(c *gin.Context) {
	var req addTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	id, err := types.ParseAccountID(req.AccountID)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	value, err := parseAmount(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.proxy.AddTokens(caller, id, value); err != nil {
		s.respondError(c, err)
		return
	}

	if s.commit(c) {
		s.respond(c, gin.H{"balance": s.state.Vault.GetBalance(id).String()})
	}
}

type moveTokensRequest struct {
	Caller    string `json:"caller" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
	To        string `json:"to" binding:"required"`
	Value     string `json:"value,omitempty"`
}

func (s *Service) postMoveTokens(c *gin.Context) {
	var req moveTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	id, err := types.ParseAccountID(req.AccountID)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	to, err := parseAddress(req.To)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// empty value drains the whole account
	if req.Value == "" {
		if err := s.proxy.MoveAllTokens(caller, id, to); err != nil {
			s.respondError(c, err)
			return
		}
	} else {
		value, err := parseAmount(req.Value)
		if err != nil {
			s.respondError(c, err)
			return
		}

		if err := s.proxy.MoveTokens(caller, id, to, value); err != nil {
			s.respondError(c, err)
			return
		}
	}

	if s.commit(c) {
		s.respond(c, gin.H{
			"balance":       s.state.Vault.GetBalance(id).String(),
			"token_balance": s.state.Token.GetBalance(to).String(),
		})
	}
}

type moveBetweenRequest struct {
	Caller string `json:"caller" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Value  string `json:"value,omitempty"`
}

func (s *Service) postMoveBetween(c *gin.Context) {
	var req moveBetweenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, code.NewInvalidParameter(err.Error()))
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		s.respondError(c, err)
		return
	}

	from, err := types.ParseAccountID(req.From)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	to, err := types.ParseAccountID(req.To)
	if err != nil {
		s.respondError(c, code.NewInvalidParameter("invalid account id"))
		return
	}

	// empty value drains the whole account
	if req.Value == "" {
		if err := s.proxy.MoveAllBetweenAccounts(caller, from, to); err != nil {
			s.respondError(c, err)
			return
		}
	} else {
		value, err := parseAmount(req.Value)
		if err != nil {
			s.respondError(c, err)
			return
		}

		if err := s.proxy.MoveBetweenAccounts(caller, from, to, value); err != nil {
			s.respondError(c, err)
			return
		}
	}

	if s.commit(c) {
		s.respond(c, gin.H{
			"from": s.state.Vault.GetBalance(from).String(),
			"to":   s.state.Vault.GetBalance(to).String(),
		})
	}
}
