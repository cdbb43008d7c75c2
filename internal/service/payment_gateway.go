package service

import (
	"context"
	"fmt"

	"github.com/haoche-next/internal/config"
	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/models"
	"github.com/haoche-next/internal/payment/alipay"
	"github.com/haoche-next/internal/payment/wechatpay"
)

// paymentChannelGateway 渠道网关默认实现，按渠道分发到微信与支付宝客户端
type paymentChannelGateway struct {
	paymentConfig *config.PaymentConfig
}

// NewPaymentChannelGateway 创建渠道网关
func NewPaymentChannelGateway(paymentConfig *config.PaymentConfig) ChannelGateway {
	return &paymentChannelGateway{paymentConfig: paymentConfig}
}

func (g *paymentChannelGateway) CreateChannelPayment(ctx context.Context, channel string, payment *models.Payment, clientIP string) (*ChannelCreateResult, error) {
	switch channel {
	case constants.PaymentChannelWechat:
		cfg, err := g.wechatConfig()
		if err != nil {
			return nil, err
		}
		result, err := wechatpay.CreatePayment(ctx, cfg, wechatpay.CreateInput{
			PaymentNo: payment.PaymentNo,
			PaymentID: payment.ID,
			Amount:    payment.Amount.StringFixed(2),
			ClientIP:  clientIP,
		})
		if err != nil {
			return nil, err
		}
		return &ChannelCreateResult{QRCode: result.QRCode, Raw: result.Raw}, nil
	case constants.PaymentChannelAlipay:
		cfg, err := g.alipayConfig()
		if err != nil {
			return nil, err
		}
		result, err := alipay.CreatePayment(ctx, cfg, alipay.CreateInput{
			PaymentNo: payment.PaymentNo,
			PaymentID: payment.ID,
			Amount:    payment.Amount.StringFixed(2),
		})
		if err != nil {
			return nil, err
		}
		return &ChannelCreateResult{QRCode: result.QRCode, Raw: result.Raw}, nil
	default:
		return nil, ErrPaymentChannelInvalid
	}
}

func (g *paymentChannelGateway) RefundChannelPayment(ctx context.Context, channel string, payment *models.Payment, refundNo, amount, reason string) error {
	switch channel {
	case constants.PaymentChannelWechat:
		cfg, err := g.wechatConfig()
		if err != nil {
			return err
		}
		_, err = wechatpay.Refund(ctx, cfg, wechatpay.RefundInput{
			PaymentNo:    payment.PaymentNo,
			RefundNo:     refundNo,
			TotalAmount:  payment.Amount.StringFixed(2),
			RefundAmount: amount,
			Reason:       reason,
		})
		return err
	case constants.PaymentChannelAlipay:
		cfg, err := g.alipayConfig()
		if err != nil {
			return err
		}
		_, err = alipay.Refund(ctx, cfg, alipay.RefundInput{
			PaymentNo:    payment.PaymentNo,
			RefundNo:     refundNo,
			RefundAmount: amount,
			Reason:       reason,
		})
		return err
	default:
		return ErrPaymentChannelInvalid
	}
}

func (g *paymentChannelGateway) wechatConfig() (*wechatpay.Config, error) {
	if g.paymentConfig == nil {
		return nil, fmt.Errorf("%w: 未配置微信支付", ErrPaymentChannelInvalid)
	}
	cfg, err := wechatpay.ParseConfig(g.paymentConfig.Wechat)
	if err != nil {
		return nil, err
	}
	if err := wechatpay.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *paymentChannelGateway) alipayConfig() (*alipay.Config, error) {
	if g.paymentConfig == nil {
		return nil, fmt.Errorf("%w: 未配置支付宝", ErrPaymentChannelInvalid)
	}
	cfg, err := alipay.ParseConfig(g.paymentConfig.Alipay)
	if err != nil {
		return nil, err
	}
	if err := alipay.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
